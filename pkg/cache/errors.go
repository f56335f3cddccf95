package cache

import "errors"

var (
	// ErrInvalidKey is returned when a module key is empty
	ErrInvalidKey = errors.New("invalid cache key")
)
