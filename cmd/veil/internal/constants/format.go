package constants

// Log line rendering defaults.
const (
	// AppTag is the bracketed application tag at the start of every log line.
	// Kept identical to the tag existing log consumers parse.
	AppTag = "HOLBERTON"

	// LoggerName is the logger name used when dumping user rows.
	LoggerName = "user_data"

	// LineTemplate is the text/template used to render a log line.
	// Fields: App, Name, Level, Time, Message.
	// Used in: redact/formatter.go
	LineTemplate = "[{{.App}}] {{.Name}} {{.Level}} {{.Time}}: {{.Message}}"

	// TimeLayout renders timestamps as "2019-11-19 18:24:25,105".
	TimeLayout = "2006-01-02 15:04:05,000"

	// RowTimeLayout renders DATETIME column values in dumped rows.
	// Used in: users/row.go
	RowTimeLayout = "2006-01-02 15:04:05"

	// NullValue is written for NULL column values in dumped rows.
	NullValue = "None"
)
