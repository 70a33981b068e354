package redact

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/thalib/veil/cmd/veil/internal/constants"
)

var (
	// ErrRedactionContainsSeparator is returned when the redaction marker
	// contains the separator, which would make redaction non-idempotent.
	ErrRedactionContainsSeparator = errors.New("redaction marker contains the separator")

	// ErrInvalidField is returned for field names containing '=' or the separator.
	ErrInvalidField = errors.New("invalid sensitive field name")

	// ErrInvalidSeparator is returned for a separator that cannot delimit
	// key=value segments.
	ErrInvalidSeparator = errors.New("invalid segment separator")

	// ErrInvalidTemplate is returned when the line template cannot be rendered.
	ErrInvalidTemplate = errors.New("invalid log line template")
)

// keyValueSeparator splits a segment into key and value.
const keyValueSeparator = '='

// Matcher selects how field names are matched against a message.
type Matcher string

const (
	// MatchExact compares whole segment keys. This is the default.
	MatchExact Matcher = "exact"
	// MatchPattern uses the legacy literal substitution, see FilterPattern.
	MatchPattern Matcher = "pattern"
)

// Config is the formatter configuration. Zero values take the defaults from
// the constants package, except Fields: an empty field set redacts nothing.
type Config struct {
	// Fields are the sensitive field names.
	Fields []string

	// Redaction replaces sensitive values (default "***").
	Redaction string

	// Separator separates message segments (default ';').
	Separator rune

	// AppTag is rendered as {{.App}} (default "HOLBERTON").
	AppTag string

	// Template is a text/template over App, Name, Level, Time and Message.
	Template string

	// TimeLayout formats {{.Time}} (default "2006-01-02 15:04:05,000").
	TimeLayout string

	// Matcher selects exact or legacy pattern matching (default exact).
	Matcher Matcher
}

// Record is a single log record before rendering.
type Record struct {
	Name    string
	Level   string
	Time    time.Time
	Message string
}

// line is the data handed to the line template.
type line struct {
	App     string
	Name    string
	Level   string
	Time    string
	Message string
}

// Formatter redacts messages and renders log lines. Its configuration is
// fixed by NewFormatter, so one Formatter may be shared by any number of
// goroutines.
type Formatter struct {
	fields     Fields
	redaction  string
	separator  rune
	appTag     string
	timeLayout string
	matcher    Matcher
	tmpl       *template.Template
	patterns   []*regexp.Regexp
}

// NewFormatter validates cfg and returns a ready formatter.
func NewFormatter(cfg Config) (*Formatter, error) {
	f := &Formatter{
		fields:     NewFields(cfg.Fields...),
		redaction:  cfg.Redaction,
		separator:  cfg.Separator,
		appTag:     cfg.AppTag,
		timeLayout: cfg.TimeLayout,
		matcher:    cfg.Matcher,
	}

	if f.redaction == "" {
		f.redaction = constants.RedactedPlaceholder
	}
	if f.separator == 0 {
		f.separator = constants.FieldSeparator
	}
	if f.appTag == "" {
		f.appTag = constants.AppTag
	}
	if f.timeLayout == "" {
		f.timeLayout = constants.TimeLayout
	}
	if f.matcher == "" {
		f.matcher = MatchExact
	}

	if f.separator == keyValueSeparator {
		return nil, fmt.Errorf("%w: %q separates keys from values", ErrInvalidSeparator, f.separator)
	}
	if strings.ContainsRune(f.redaction, f.separator) {
		return nil, fmt.Errorf("%w: %q in %q", ErrRedactionContainsSeparator, f.separator, f.redaction)
	}
	for _, field := range f.fields {
		if strings.ContainsRune(field, f.separator) || strings.ContainsRune(field, keyValueSeparator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
	}

	switch f.matcher {
	case MatchExact:
	case MatchPattern:
		f.patterns = compilePatterns(f.fields, f.separator)
	default:
		return nil, fmt.Errorf("unknown matcher %q, must be one of: exact, pattern", f.matcher)
	}

	text := cfg.Template
	if text == "" {
		text = constants.LineTemplate
	}
	tmpl, err := template.New("line").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	// Fields referenced by the template are only resolved on execution.
	if err := tmpl.Execute(&strings.Builder{}, line{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	f.tmpl = tmpl

	return f, nil
}

// Fields returns a copy of the sensitive field set.
func (f *Formatter) Fields() Fields {
	return append(Fields(nil), f.fields...)
}

// Redaction returns the redaction marker.
func (f *Formatter) Redaction() string {
	return f.redaction
}

// Separator returns the segment separator.
func (f *Formatter) Separator() rune {
	return f.separator
}

// IsSensitive reports whether key is a sensitive field.
func (f *Formatter) IsSensitive(key string) bool {
	return f.fields.Contains(key)
}

// Filter redacts message with the formatter's fields and matcher.
func (f *Formatter) Filter(message string) string {
	if f.matcher == MatchPattern {
		for i, re := range f.patterns {
			message = re.ReplaceAllLiteralString(message, f.fields[i]+"="+f.redaction)
		}
		return message
	}
	return Filter(f.fields, f.redaction, message, f.separator)
}

// Render substitutes the four values into the line template. The message is
// rendered as given; use Format to redact it first.
func (f *Formatter) Render(name, level string, ts time.Time, message string) string {
	data := line{
		App:     f.appTag,
		Name:    name,
		Level:   strings.ToUpper(level),
		Time:    ts.Format(f.timeLayout),
		Message: message,
	}

	var b strings.Builder
	if err := f.tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("[%s] %s %s %s: %s", data.App, data.Name, data.Level, data.Time, data.Message)
	}
	return b.String()
}

// Format redacts the record's message and renders it.
func (f *Formatter) Format(r Record) string {
	return f.Render(r.Name, r.Level, r.Time, f.Filter(r.Message))
}
