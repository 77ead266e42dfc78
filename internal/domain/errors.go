package domain

import "errors"

// ErrInvalidID is returned for tasks without an id.
var ErrInvalidID = errors.New("invalid id")
