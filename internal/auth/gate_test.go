package auth

import (
	"testing"

	"citynav/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFlags bool

func (f staticFlags) GuestMode() bool { return bool(f) }

func TestGateGuest(t *testing.T) {
	g := NewGate(staticFlags(true))
	assert.Equal(t, StateUnknown, g.State())

	s, err := g.Begin()
	require.NoError(t, err)
	assert.Equal(t, StateGuest, s)
	assert.True(t, g.IsGuest())
	assert.True(t, g.Allowed())
	assert.False(t, g.ShouldRedirect())

	_, err = g.Resolve(&model.User{UID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateGuest, g.State())
}

func TestGateAuthenticated(t *testing.T) {
	g := NewGate(staticFlags(false))
	s, err := g.Begin()
	require.NoError(t, err)
	assert.Equal(t, StateChecking, s)
	assert.False(t, g.Allowed())

	s, err = g.Resolve(&model.User{UID: "u1", Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, s)
	assert.True(t, g.Allowed())
	assert.False(t, g.IsGuest())
	require.NotNil(t, g.User())
	assert.Equal(t, "u1", g.User().UID)
}

func TestGateRejectedIsTerminal(t *testing.T) {
	g := NewGate(nil)
	_, err := g.Begin()
	require.NoError(t, err)

	s, err := g.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, s)
	assert.True(t, g.ShouldRedirect())
	assert.False(t, g.Allowed())

	_, err = g.Resolve(&model.User{UID: "late"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = g.Begin()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateRejected, g.State())
	assert.Nil(t, g.User())
}

func TestGateSessionEndedAfterAuthentication(t *testing.T) {
	g := NewGate(nil)
	_, _ = g.Begin()
	_, err := g.Resolve(&model.User{UID: "u1"})
	require.NoError(t, err)

	s, err := g.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, s)
}

func TestGateResolveBeforeBegin(t *testing.T) {
	g := NewGate(nil)
	_, err := g.Resolve(&model.User{UID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateUnknown, g.State())
}

func TestGateBeginTwice(t *testing.T) {
	g := NewGate(nil)
	_, err := g.Begin()
	require.NoError(t, err)
	s, err := g.Begin()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateChecking, s)
}

func TestGateUserIsCopy(t *testing.T) {
	g := NewGate(nil)
	_, _ = g.Begin()
	u := &model.User{UID: "u1"}
	_, _ = g.Resolve(u)
	u.UID = "changed"
	g.User().UID = "changed too"
	assert.Equal(t, "u1", g.User().UID)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "checking", StateChecking.String())
	assert.Equal(t, "State(42)", State(42).String())
}
