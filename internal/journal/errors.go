package journal

import "errors"

// ErrNotFound is returned when a requested entity does not exist or has been
// soft deleted.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness rule, such as
// a second review for the same reviewer on one revision.
var ErrDuplicate = errors.New("already exists")
