/*
Package randx generates identifiers used by the relay.
*/
package randx

import "github.com/google/uuid"

// ConnID returns a fresh UUID v4 identifying one WebSocket connection.
// It only appears in logs; clients never see it.
func ConnID() string {
	return uuid.NewString()
}
