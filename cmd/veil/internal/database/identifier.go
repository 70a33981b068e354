package database

import "strconv"

// IsValidIdentifier reports whether name is safe to interpolate as a table or
// column name: a letter or underscore followed by letters, digits or
// underscores, at most 64 characters.
func IsValidIdentifier(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}

	for i, ch := range name {
		if i == 0 {
			// First character must be letter or underscore
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_') {
				return false
			}
		} else {
			// Subsequent characters can be alphanumeric or underscore
			if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_') {
				return false
			}
		}
	}

	return true
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func Placeholder(dialect DialectType, n int) string {
	if dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
