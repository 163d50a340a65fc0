/*
Package errs provides custom error types and application-level error code constants.

This file maps each error code to its client message and HTTP status.
*/
package errs

import "net/http"

var errorMap = map[int]CustomError{
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrOriginNotAllowed:  {Code: ErrOriginNotAllowed, Message: "Origin %q is not allowed.", Status: http.StatusForbidden},

	ErrRoomNotFound: {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},

	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
