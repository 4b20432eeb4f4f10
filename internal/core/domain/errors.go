package domain

import (
	"errors"
	"fmt"
)

var (
	ErrScanNotFound           = errors.New("scan not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTemporary              = errors.New("temporary failure")
	ErrCapabilityUnavailable  = errors.New("capability unavailable")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
