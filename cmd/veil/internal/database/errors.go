package database

import "errors"

var (
	// ErrEmptyConnectionString is returned by NewDriver for an empty connection string.
	ErrEmptyConnectionString = errors.New("connection string is empty")

	// ErrUnknownDialect is returned when no dialect matches the connection string.
	ErrUnknownDialect = errors.New("unable to detect database dialect from connection string")

	// ErrNotConnected is returned when a query is issued before Connect succeeds.
	ErrNotConnected = errors.New("database is not connected")
)
