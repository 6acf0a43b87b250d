package domain

import "errors"

// ErrNotFound is the storage-agnostic sentinel for a missing row.
// Repositories return it unwrapped so services can map it to the
// resource-specific not-found error.
var ErrNotFound = errors.New("not found")
