package lending

import (
	"errors"
	"strings"
)

// ErrUnauthorized is returned when a parameter mutation is attempted by a
// principal the authorization gate does not recognise.
var ErrUnauthorized = errors.New("lending params: principal not authorized")

// Authorizer is the external authorization gate consulted before any protocol
// parameter mutation.
type Authorizer interface {
	IsAuthorized(principal string) bool
}

// StaticAuthorizer allows a fixed set of governance principals.
type StaticAuthorizer struct {
	principals map[string]struct{}
}

// NewStaticAuthorizer builds an authorizer from the listed principals. Blank
// entries are ignored.
func NewStaticAuthorizer(principals ...string) *StaticAuthorizer {
	auth := &StaticAuthorizer{principals: make(map[string]struct{})}
	for _, principal := range principals {
		trimmed := strings.TrimSpace(principal)
		if trimmed == "" {
			continue
		}
		auth.principals[trimmed] = struct{}{}
	}
	return auth
}

// IsAuthorized implements the Authorizer interface.
func (a *StaticAuthorizer) IsAuthorized(principal string) bool {
	if a == nil {
		return false
	}
	_, ok := a.principals[strings.TrimSpace(principal)]
	return ok
}
