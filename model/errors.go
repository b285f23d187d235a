package model

import (
	"github.com/jmgilman/go/errors"
)

// CodeCapacityExceeded is reported when a segment is full and eviction is disabled.
const CodeCapacityExceeded errors.ErrorCode = "CAPACITY_EXCEEDED"

// Error kinds. Every failure returned by a segment wraps exactly one of them,
// so both errors.Is(err, ErrNotFound) and errors.GetCode(err) work on results.
var (
	// ErrConfig is returned when a schema or segment definition is invalid.
	ErrConfig = errors.New(errors.CodeInvalidConfig, "invalid configuration")
	// ErrValidation is returned when a record (or merged update) does not conform to its schema.
	ErrValidation = errors.New(errors.CodeSchemaFailed, "record validation failed")
	// ErrDuplicateKey is returned by Add without overwrite on an existing key.
	ErrDuplicateKey = errors.New(errors.CodeAlreadyExists, "duplicate key")
	// ErrNotFound is returned when a key is absent and no default was supplied.
	ErrNotFound = errors.New(errors.CodeNotFound, "record not found")
	// ErrCapacityExceeded is returned by Add when the segment is full and eviction is off.
	ErrCapacityExceeded = errors.New(CodeCapacityExceeded, "segment capacity exceeded")
)

// Configf wraps ErrConfig with a formatted message.
func Configf(format string, args ...any) error {
	return errors.Wrapf(ErrConfig, errors.CodeInvalidConfig, format, args...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, errors.CodeSchemaFailed, format, args...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, errors.CodeNotFound, format, args...)
}

// DuplicateKeyf wraps ErrDuplicateKey with a formatted message.
func DuplicateKeyf(format string, args ...any) error {
	return errors.Wrapf(ErrDuplicateKey, errors.CodeAlreadyExists, format, args...)
}

// CapacityExceededf wraps ErrCapacityExceeded with a formatted message.
func CapacityExceededf(format string, args ...any) error {
	return errors.Wrapf(ErrCapacityExceeded, CodeCapacityExceeded, format, args...)
}
