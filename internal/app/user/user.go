/*
Package user describes the identity a client claims when it joins a room.

Descriptors are client-supplied and unvalidated. The relay stores the raw JSON
it received and echoes it back verbatim in presence events; the User struct is
only used for the anonymous fallback and for log fields.
*/
package user

import (
	"bytes"
	"encoding/json"
)

// User is the structured form of a descriptor.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Glyph string `json:"glyph"`
}

// Anonymous returns the identity used when a join carries no user.
func Anonymous() User {
	return User{ID: "anon", Name: "Anon", Glyph: "🙂"}
}

var anonymousRaw = mustMarshal(Anonymous())

func mustMarshal(u User) json.RawMessage {
	b, err := json.Marshal(u)
	if err != nil {
		panic(err)
	}
	return b
}

// Resolve returns raw unchanged when it holds a truthy JSON value and the
// anonymous descriptor otherwise.
func Resolve(raw json.RawMessage) json.RawMessage {
	if !IsTruthy(raw) {
		return append(json.RawMessage(nil), anonymousRaw...)
	}
	return raw
}

// IsTruthy reports whether raw is present and is not one of the falsy JSON
// values: null, false, 0 or "".
func IsTruthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	switch raw[0] {
	case 'n', 'f':
		return false
	case '"':
		return len(raw) > 2
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return false
		}
		return f != 0
	}

	return true
}

// Peek decodes as much of raw as fits a User. It never fails; unreadable
// descriptors yield the zero User.
func Peek(raw json.RawMessage) User {
	var u User
	_ = json.Unmarshal(raw, &u)
	return u
}
