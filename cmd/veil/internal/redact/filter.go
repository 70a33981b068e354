package redact

import (
	"regexp"
	"strings"
)

// Filter returns message with the value of every segment whose key is in
// fields replaced by redaction. Keys, the '=' sign, leading whitespace and
// every separator are left in place. Segments without '=' and segments with
// other keys are returned verbatim.
//
// Keys are compared whole, so "username" is not redacted by the field "name".
// Filter is idempotent as long as redaction does not contain separator.
//
// A separator inside a value splits it: "note=a;b" yields the segments
// "note=a" and "b", and only "a" is treated as the value.
func Filter(fields Fields, redaction, message string, separator rune) string {
	if len(fields) == 0 || message == "" {
		return message
	}

	sep := string(separator)
	segments := strings.Split(message, sep)
	changed := false
	for i, segment := range segments {
		key, _, ok := strings.Cut(segment, "=")
		if !ok || !fields.Contains(strings.TrimSpace(key)) {
			continue
		}
		segments[i] = key + "=" + redaction
		changed = true
	}

	if !changed {
		return message
	}
	return strings.Join(segments, sep)
}

// FilterPattern redacts with one literal substitution of
// "<field>=<anything but separator>" per field, applied in field order.
//
// This reproduces the output of the legacy log pipeline byte for byte,
// including its defect: a field name is matched anywhere, so the field "name"
// also redacts "username=bob". Use Filter unless that exact output is needed.
func FilterPattern(fields Fields, redaction, message string, separator rune) string {
	for i, re := range compilePatterns(fields, separator) {
		message = re.ReplaceAllLiteralString(message, fields[i]+"="+redaction)
	}
	return message
}

// compilePatterns builds one "<field>=[^<sep>]*" expression per field.
// Every user-supplied part is quoted so the expressions always compile.
func compilePatterns(fields Fields, separator rune) []*regexp.Regexp {
	class := "[^" + regexp.QuoteMeta(string(separator)) + "]*"
	patterns := make([]*regexp.Regexp, len(fields))
	for i, field := range fields {
		patterns[i] = regexp.MustCompile(regexp.QuoteMeta(field) + "=" + class)
	}
	return patterns
}
