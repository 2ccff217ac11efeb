// Package errdefs defines the error kinds shared by the catalog, cache,
// mixer and playback packages. Callers branch on kinds with errors.Is or
// the Is* predicates instead of matching message text.
package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Errors returned by the engine wrap exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrTimeout            = errors.New("timed out")
	ErrDuplicateOperation = errors.New("operation already in progress")
	ErrStorage            = errors.New("storage failure")
)

// Validationf returns a new error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return wrapf(ErrValidation, format, args...)
}

// NotFoundf returns a new error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return wrapf(ErrNotFound, format, args...)
}

// UnsupportedFormatf returns a new error wrapping ErrUnsupportedFormat.
func UnsupportedFormatf(format string, args ...any) error {
	return wrapf(ErrUnsupportedFormat, format, args...)
}

// Timeoutf returns a new error wrapping ErrTimeout.
func Timeoutf(format string, args ...any) error {
	return wrapf(ErrTimeout, format, args...)
}

// DuplicateOperationf returns a new error wrapping ErrDuplicateOperation.
func DuplicateOperationf(format string, args ...any) error {
	return wrapf(ErrDuplicateOperation, format, args...)
}

// Storagef returns a new error wrapping ErrStorage.
func Storagef(format string, args ...any) error {
	return wrapf(ErrStorage, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsUnsupportedFormat(err error) bool { return errors.Is(err, ErrUnsupportedFormat) }

func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

func IsDuplicateOperation(err error) bool { return errors.Is(err, ErrDuplicateOperation) }

func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
