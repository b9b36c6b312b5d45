// Package auth implements the shared-secret gate that protects mutating event
// endpoints. There is one process-wide key; no identities, expiry or rotation.
package auth

import (
	"crypto/subtle"
	"net/http"
)

// HeaderName carries the shared secret on protected requests.
const HeaderName = "X-API-KEY"

// Messages returned to clients on rejection.
const (
	MsgMissingKey = "Not authenticated"
	MsgInvalidKey = "Could not validate credentials: Invalid API Key"
)

// Error is an authorization failure. Status is always 403.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Gate compares a presented key against the configured secret.
type Gate struct {
	key []byte
}

// NewGate builds a gate for the configured secret.
func NewGate(key string) *Gate {
	return &Gate{key: []byte(key)}
}

// Check returns the presented key when it equals the secret byte for byte.
func (g *Gate) Check(presented string) (string, error) {
	if presented == "" {
		return "", &Error{Status: http.StatusForbidden, Message: MsgMissingKey}
	}
	if len(g.key) == 0 || subtle.ConstantTimeCompare([]byte(presented), g.key) != 1 {
		return "", &Error{Status: http.StatusForbidden, Message: MsgInvalidKey}
	}
	return presented, nil
}

// CheckRequest reads the key header from r and checks it.
func (g *Gate) CheckRequest(r *http.Request) (string, error) {
	return g.Check(r.Header.Get(HeaderName))
}
