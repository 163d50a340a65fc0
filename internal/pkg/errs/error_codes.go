/*
Package errs provides custom error types and application-level error code constants.

The codes identify failures of the HTTP surface of the relay. The WebSocket
protocol itself never reports errors to clients; malformed or out-of-sequence
frames are dropped silently.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrOriginNotAllowed indicates that the request Origin is not in the allow list.
	ErrOriginNotAllowed = 1008
)

// 2xxx: Room Errors
const (
	// ErrRoomNotFound indicates that the requested room has no members and therefore does not exist.
	ErrRoomNotFound = 2103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
