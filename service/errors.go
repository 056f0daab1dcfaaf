package service

import (
	"errors"
	"fmt"

	"civicreport-backend/repository"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("admin role required")
	ErrReportNotFound       = errors.New("report not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrIncorrectPassword    = errors.New("current password is incorrect")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// reportErr translates store errors for report lookups
func reportErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrReportNotFound
	}
	return err
}
