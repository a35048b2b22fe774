package service

import "errors"

// ValidationError is returned when caller input is rejected before any work
// begins.
type ValidationError struct {
	message string
}

// Error returns the error message.
func (e ValidationError) Error() string {
	return e.message
}

func invalid(message string) error {
	return ValidationError{message: message}
}

var (
	// ErrMailDisabled is returned by EmailRecipe when no mailer is configured.
	ErrMailDisabled = errors.New("email delivery is not configured")
	// ErrMailBusy is returned by EmailRecipe when the mail pool refused the job.
	ErrMailBusy = errors.New("email delivery is busy, try again later")
)
