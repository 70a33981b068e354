package constants

// Table and column names of the personal data store.
const (
	// TableUsers is the default table dumped by the dump command.
	TableUsers = "users"

	// ColumnEmail identifies a user row.
	// Used in: users/repository.go
	ColumnEmail = "email"

	// ColumnPassword holds the stored credential digest.
	// Used in: users/repository.go
	ColumnPassword = "password"
)
