package store

import "errors"

// ErrNotFound is returned when a row addressed by ID does not exist.
var ErrNotFound = errors.New("registry row not found")
