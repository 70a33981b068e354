// Package runid generates identifiers for a single command invocation. A dump
// attaches its id to every event as the run_id field, visible in the json and
// console formats, and prints it in the closing summary. IDs are ULIDs:
// 26-character, time-sortable, base32-encoded strings carrying the start time.
package runid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalidRunID indicates that a run ID string is malformed.
var ErrInvalidRunID = errors.New("invalid run ID")

// New creates a run ID using the current time and secure random data.
func New() string {
	return NewWithTime(time.Now())
}

// NewWithTime creates a run ID for the given start time.
func NewWithTime(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// Time returns the start time embedded in a run ID.
func Time(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRunID, err)
	}
	return ulid.Time(parsed.Time()), nil
}
