package prefixtree

import "errors"

var (
	// ErrNotFound indicates a lookup on an absent key.
	ErrNotFound = errors.New("prefixtree: key not found")

	// ErrTypeMismatch indicates an increment against a slot holding a
	// different type.
	ErrTypeMismatch = errors.New("prefixtree: value type mismatch")
)
