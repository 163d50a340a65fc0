/*
Package errs provides custom error types and application-level error code constants.

This file defines CustomError, which carries a business code, a client-facing
message and the HTTP status used when the error is written as a response.
*/
package errs

import (
	"fmt"
	"net/http"
	"strings"

	"roomrelay/internal/pkg/logx"
)

// CustomError is the error type returned by the HTTP layer.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code written with this error.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError from a registered code. details are printf
// arguments for messages that contain a verb. Unknown codes yield ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Warn("Unknown error code requested", "requested_code", code)
		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if code == ErrUnknown {
			if originalErr, ok := details[0].(error); ok {
				logx.Error(originalErr, "Handling ErrUnknown with underlying error")
			}
		} else if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error without placeholders. Details ignored.", "code", code)
		}
	}

	return &customErr
}
