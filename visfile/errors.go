package visfile

import "errors"

// Common errors
var (
	ErrTimeUnit  = errors.New("invalid time unit")
	ErrNotFound  = errors.New("no match in cycle index")
	ErrNotLoaded = errors.New("cycle index not loaded")
)
