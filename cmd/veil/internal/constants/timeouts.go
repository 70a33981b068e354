package constants

import "time"

// Timeout and duration constants used throughout the application.
const (
	// QueryTimeout bounds a single dump query including row iteration.
	// Used in: config/config.go, cli/dump.go
	// Default: 30 seconds
	QueryTimeout = 30 * time.Second

	// ConnectTimeout bounds opening and pinging the database.
	// Used in: cli/root.go
	// Default: 10 seconds
	ConnectTimeout = 10 * time.Second
)
