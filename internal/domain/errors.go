// Package domain holds the sentinel errors shared by every domain package.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation marks bad input. Wrap it with the field-level reason:
// fmt.Errorf("%w: title is required", domain.ErrValidation).
var ErrValidation = errors.New("validation failed")

// ErrConflict marks an operation that is not valid in the current state,
// such as answering a completion dialog that is not open.
var ErrConflict = errors.New("conflict")
