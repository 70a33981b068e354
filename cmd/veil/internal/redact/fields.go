// Package redact scrubs sensitive values out of structured key=value log
// messages and renders the scrubbed message into a fixed log line template.
//
// A message is a sequence of key=value segments joined by a single separator
// rune. A value runs up to the next separator or the end of the message and
// may contain '=' but never the separator.
package redact

// Fields is an ordered set of field names whose values must never reach a
// log sink. A Fields value is not modified after construction.
type Fields []string

// NewFields copies names into a new field set, dropping empty names and
// duplicates while keeping first-seen order.
func NewFields(names ...string) Fields {
	fields := make(Fields, 0, len(names))
	for _, name := range names {
		if name == "" || fields.Contains(name) {
			continue
		}
		fields = append(fields, name)
	}
	return fields
}

// Contains reports whether key is one of the fields. Comparison is exact and
// case-sensitive.
func (f Fields) Contains(key string) bool {
	for _, field := range f {
		if field == key {
			return true
		}
	}
	return false
}
