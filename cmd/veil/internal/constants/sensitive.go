package constants

// PIIFields are the personally identifiable field names redacted from user
// rows before they reach a log sink. Order is the substitution order.
// Used in: config/config.go (logging.fields default), logging/logger.go
var PIIFields = []string{
	"name",
	"email",
	"phone",
	"ssn",
	"password",
}

// RedactedPlaceholder is the string used to replace sensitive values in logs.
// It must never contain the log field separator.
// Used in: redact/formatter.go, logging/logger.go
const RedactedPlaceholder = "***"

// FieldSeparator separates key=value segments in a log message.
// Used in: redact/formatter.go, users/row.go
const FieldSeparator = ';'
