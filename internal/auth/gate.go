// Package auth decides whether the visitor may use the navigator and talks to
// the identity provider.
package auth

import (
	"errors"
	"fmt"

	"citynav/internal/model"
)

// State is a Session Gate state.
type State int

const (
	StateUnknown State = iota
	StateGuest
	StateChecking
	StateAuthenticated
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateGuest:
		return "guest"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an event does not apply to the
// current state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid session state transition")

// FlagStore reads the persisted guest flag.
type FlagStore interface {
	GuestMode() bool
}

// Gate is the session state machine.
//
//	Unknown -> Guest              (guest flag set)
//	Unknown -> Checking           (no flag, ask the provider)
//	Checking -> Authenticated     (provider reports a user)
//	Checking -> Rejected          (provider reports nobody)
//	Authenticated -> Authenticated (token refreshed)
//	Authenticated -> Rejected     (session ended elsewhere)
//
// Rejected is terminal.
type Gate struct {
	flags FlagStore
	state State
	user  *model.User
}

// NewGate creates a gate in StateUnknown.
func NewGate(flags FlagStore) *Gate {
	return &Gate{flags: flags}
}

// Begin reads the guest flag and leaves StateUnknown.
func (g *Gate) Begin() (State, error) {
	if g.state != StateUnknown {
		return g.state, fmt.Errorf("%w: begin from %s", ErrInvalidTransition, g.state)
	}
	if g.flags != nil && g.flags.GuestMode() {
		g.state = StateGuest
	} else {
		g.state = StateChecking
	}
	return g.state, nil
}

// Resolve applies a provider notification. A nil user means nobody is signed
// in.
func (g *Gate) Resolve(user *model.User) (State, error) {
	switch g.state {
	case StateChecking, StateAuthenticated:
	default:
		return g.state, fmt.Errorf("%w: resolve from %s", ErrInvalidTransition, g.state)
	}

	if user == nil {
		g.state = StateRejected
		g.user = nil
		return g.state, nil
	}
	u := *user
	g.user = &u
	g.state = StateAuthenticated
	return g.state, nil
}

// State returns the current state.
func (g *Gate) State() State {
	return g.state
}

// User returns the signed-in user, or nil.
func (g *Gate) User() *model.User {
	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// IsGuest reports whether the session runs in guest mode.
func (g *Gate) IsGuest() bool {
	return g.state == StateGuest
}

// Allowed reports whether location data may be loaded.
func (g *Gate) Allowed() bool {
	return g.state == StateGuest || g.state == StateAuthenticated
}

// ShouldRedirect reports whether the visitor must be sent to the login surface.
func (g *Gate) ShouldRedirect() bool {
	return g.state == StateRejected
}
