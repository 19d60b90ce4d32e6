package contract

import "errors"

// ErrStaleRevision is returned when a conditional write lost a race: the row's revision
// moved on, or a unique version number was taken first.
var ErrStaleRevision = errors.New("stale revision")

// ErrNotFound is returned by writes that target a missing row.
var ErrNotFound = errors.New("record not found")

type ListOptions struct {
	Limit  int
	Offset int
}
