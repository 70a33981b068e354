// Package users reads user rows from the personal data store and stores
// credential digests for them.
package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/thalib/veil/cmd/veil/internal/constants"
)

// Field is one column of a user row, already converted to text.
type Field struct {
	Key   string
	Value string
}

// Row is a user row in column order.
type Row []Field

// Message formats the row as "key=value<sep> key=value", the message shape the
// redacting logger expects.
func (r Row) Message(separator rune) string {
	var b strings.Builder
	for i, field := range r {
		if i > 0 {
			b.WriteRune(separator)
			b.WriteByte(' ')
		}
		b.WriteString(field.Key)
		b.WriteByte('=')
		b.WriteString(field.Value)
	}
	return b.String()
}

// Get returns the value of the first field named key.
func (r Row) Get(key string) (string, bool) {
	for _, field := range r {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// formatValue converts a scanned column value to text.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return constants.NullValue
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(constants.RowTimeLayout)
	default:
		return fmt.Sprint(val)
	}
}
