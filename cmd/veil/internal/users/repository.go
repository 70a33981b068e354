package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/thalib/veil/cmd/veil/internal/constants"
	"github.com/thalib/veil/cmd/veil/internal/database"
	"github.com/thalib/veil/cmd/veil/internal/password"
)

var (
	// ErrInvalidTable is returned for table names that are not plain identifiers.
	ErrInvalidTable = errors.New("invalid table name")

	// ErrUserNotFound is returned when no row matches the given email.
	ErrUserNotFound = errors.New("user not found")
)

// Repository provides database operations for user rows.
type Repository struct {
	db    database.Driver
	table string
}

// NewRepository creates a repository over table.
func NewRepository(db database.Driver, table string) (*Repository, error) {
	if table == "" {
		table = constants.TableUsers
	}
	if !database.IsValidIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Repository{db: db, table: table}, nil
}

// Dump streams every row of the table to fn in column order and returns the
// number of rows delivered. It stops at the first error returned by fn.
func (r *Repository) Dump(ctx context.Context, fn func(Row) error) (int, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT * FROM %s", r.table))
	if err != nil {
		return 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read columns: %w", err)
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return count, fmt.Errorf("failed to scan user row: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[i] = Field{Key: column, Value: formatValue(values[i])}
		}

		if err := fn(row); err != nil {
			return count, err
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("failed to iterate users: %w", err)
	}
	return count, nil
}

// SetPassword stores digest as the password of the user with email.
func (r *Repository) SetPassword(ctx context.Context, email string, digest password.Digest) error {
	query := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		r.table,
		constants.ColumnPassword, database.Placeholder(r.db.Dialect(), 1),
		constants.ColumnEmail, database.Placeholder(r.db.Dialect(), 2),
	)

	result, err := r.db.Exec(ctx, query, digest.String(), email)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PasswordDigest returns the stored password digest of the user with email.
func (r *Repository) PasswordDigest(ctx context.Context, email string) (password.Digest, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		constants.ColumnPassword, r.table,
		constants.ColumnEmail, database.Placeholder(r.db.Dialect(), 1),
	)

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query password: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query password: %w", err)
		}
		return nil, ErrUserNotFound
	}

	var stored sql.NullString
	if err := rows.Scan(&stored); err != nil {
		return nil, fmt.Errorf("failed to scan password: %w", err)
	}
	return password.Digest(stored.String), nil
}
