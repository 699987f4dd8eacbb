package errors

import "errors"

// Error codes shared across domains. Handlers map these to HTTP statuses
// and the chat domain maps them to user-visible fallback text.
const (
	CodeConfig   = "config_error"
	CodeInvalid  = "invalid_input"
	CodeProvider = "provider_error"
	CodeNotFound = "not_found"
	CodeParse    = "parse_error"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode helps callers differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
