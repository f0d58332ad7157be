package repository

import "errors"

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrLoadExceeded is returned when an appointment write would push a
	// section's summed load past the ceiling.
	ErrLoadExceeded = errors.New("section load exceeded")
)
