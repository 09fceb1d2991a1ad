package types

import (
	"errors"
	"fmt"
)

// Operation errors. Callers distinguish them with errors.Is.
var (
	// ErrValidation marks input rejected before touching the store.
	ErrValidation = errors.New("validation failed")

	// ErrNothingToUpdate is returned by partial updates with an empty change set.
	ErrNothingToUpdate = fmt.Errorf("%w: nothing to update", ErrValidation)

	ErrNotFound = errors.New("entity not found")

	// ErrImageNotOwned is an integrity error: the image exists but belongs
	// to another artwork.
	ErrImageNotOwned = errors.New("image does not belong to artwork")

	// ErrThumbnail wraps thumbnail derivation failures. The original image
	// and its row are left untouched; callers may retry.
	ErrThumbnail = errors.New("thumbnail generation failed")

	ErrArchiveInvalid = errors.New("invalid backup archive")
)

// FieldError reports a single invalid or missing input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap makes every FieldError match ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// NewFieldError returns a FieldError for field.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
