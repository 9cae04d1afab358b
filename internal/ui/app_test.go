package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"citynav/internal/auth"
	"citynav/internal/model"
	"citynav/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	added      []model.NewLocation
	addErr     error
	onSnapshot store.SnapshotFunc
	onError    store.ErrorFunc
	subscribed int
	cancelled  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

type fakeSub struct{ s *fakeStore }

func (f fakeSub) Unsubscribe() {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.cancelled++
}

func (s *fakeStore) Subscribe(ctx context.Context, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed++
	s.onSnapshot = onSnapshot
	s.onError = onError
	return fakeSub{s}
}

func (s *fakeStore) Add(ctx context.Context, loc model.NewLocation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	s.added = append(s.added, loc)
	return fmt.Sprintf("loc-%d", len(s.added)), nil
}

func (s *fakeStore) Close() error { return nil }

// goroutineStore delivers from its own goroutine, the way the real backends do.
type goroutineStore struct {
	fakeStore
	exited atomic.Bool
}

func (s *goroutineStore) Subscribe(ctx context.Context, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Subscription {
	ctx, sub := store.NewCancelSubscription(ctx)
	go func() {
		defer sub.Finish()
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		s.exited.Store(true)
	}()
	return sub
}

type fakeProvider struct {
	user     *model.User
	signOuts int
	err      error
}

func (p *fakeProvider) OnAuthStateChanged(ctx context.Context, fn func(*model.User)) func() {
	fn(p.user)
	return func() {}
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.signOuts++
	return p.err
}

type fakeFlags struct {
	guest   bool
	cleared int
}

func (f *fakeFlags) GuestMode() bool { return f.guest }

func (f *fakeFlags) ClearGuestMode() error {
	f.guest = false
	f.cleared++
	return nil
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func guestModel(t *testing.T, st *fakeStore) Model {
	t.Helper()
	m := New(Options{Store: st, Flags: &fakeFlags{guest: true}})
	m, cmd := update(t, m, sessionStartMsg{})
	require.NotNil(t, cmd)
	require.Equal(t, auth.StateGuest, m.Gate().State())
	return m
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestGuestSubscribesWithoutAuthCheck(t *testing.T) {
	st := newFakeStore()
	provider := &fakeProvider{}
	m := New(Options{Store: st, Provider: provider, Flags: &fakeFlags{guest: true}})

	m, cmd := update(t, m, sessionStartMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, auth.StateGuest, m.Gate().State())
	assert.True(t, m.Gate().Allowed())
	assert.Equal(t, 1, st.subscribed)

	st.onSnapshot([]model.Location{{ID: "a", Name: "Cafe", Category: model.CategoryFood, Lat: 1, Lng: 1}})
	msg := cmd()
	snap, ok := msg.(model.SnapshotMsg)
	require.True(t, ok)
	assert.Equal(t, 1, snap.Seq)

	m, _ = update(t, m, snap)
	assert.Equal(t, []string{"Cafe"}, listNames(m.ListPresenter().Rows()))
	assert.Empty(t, m.ListPresenter().Notice())
	assert.Equal(t, 1, m.MapPresenter().MarkerCount())
}

func TestQuitWaitsForSubscriptionToStop(t *testing.T) {
	st := &goroutineStore{}
	m := New(Options{Store: st, Flags: &fakeFlags{guest: true}})

	m, _ = update(t, m, sessionStartMsg{})
	require.NotNil(t, m.sub, "the returned model carries the subscription")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))
	assert.True(t, st.exited.Load())
}

func TestEmptySnapshotLoadsDemoData(t *testing.T) {
	st := newFakeStore()
	m := guestModel(t, st)

	m, _ = update(t, m, model.SnapshotMsg{Seq: 1})
	assert.Equal(t, store.DemoNotice, m.ListPresenter().Notice())
	assert.Len(t, m.ListPresenter().Rows(), 5)
	assert.Equal(t, 5, m.MapPresenter().MarkerCount())
	assert.Equal(t, 5, m.State().Len())

	m, _ = update(t, m, model.SnapshotMsg{Seq: 2, Locations: []model.Location{{ID: "x", Name: "Real"}}})
	assert.Empty(t, m.ListPresenter().Notice(), "real data clears the demo notice")
	assert.Equal(t, []string{"Real"}, listNames(m.ListPresenter().Rows()))
}

func TestStaleSnapshotIgnored(t *testing.T) {
	m := guestModel(t, newFakeStore())
	m, _ = update(t, m, model.SnapshotMsg{Seq: 2, Locations: []model.Location{{ID: "new", Name: "New"}}})
	m, _ = update(t, m, model.SnapshotMsg{Seq: 1, Locations: []model.Location{{ID: "old", Name: "Old"}}})
	assert.Equal(t, []string{"New"}, listNames(m.ListPresenter().Rows()))
}

func TestSubscriptionErrorLoadsDemoData(t *testing.T) {
	st := newFakeStore()
	m := guestModel(t, st)
	cmd := m.waitForEvent()

	st.onError(errors.New("permission denied"))
	msg := cmd()
	require.IsType(t, model.SnapshotErrorMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, store.DemoNotice, m.ListPresenter().Notice())
	assert.Len(t, m.ListPresenter().Rows(), 5)
}

func TestNoStoreFallsBackToDemo(t *testing.T) {
	m := New(Options{Flags: &fakeFlags{guest: true}})
	m, cmd := update(t, m, sessionStartMsg{})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, store.DemoNotice, m.ListPresenter().Notice())
}

func TestSignedInUserSubscribes(t *testing.T) {
	st := newFakeStore()
	provider := &fakeProvider{user: &model.User{UID: "u1", Email: "ada@example.com"}}
	m := New(Options{Store: st, Provider: provider, Flags: &fakeFlags{}})

	m, cmd := update(t, m, sessionStartMsg{})
	assert.Equal(t, auth.StateChecking, m.Gate().State())
	assert.Equal(t, 0, st.subscribed, "no data before the provider answers")
	assert.False(t, m.Gate().Allowed())

	m, _ = update(t, m, cmd())
	assert.Equal(t, auth.StateAuthenticated, m.Gate().State())
	assert.Equal(t, 1, st.subscribed)
	assert.False(t, m.Redirect())

	// A token refresh keeps the same subscription.
	m, _ = update(t, m, model.AuthStateMsg{User: &model.User{UID: "u1", Email: "ada@example.com"}})
	assert.Equal(t, 1, st.subscribed)
}

func TestSignedOutVisitorRedirected(t *testing.T) {
	st := newFakeStore()
	m := New(Options{Store: st, Provider: &fakeProvider{}, Flags: &fakeFlags{}})

	m, cmd := update(t, m, sessionStartMsg{})
	m, cmd = update(t, m, cmd())
	assert.Equal(t, auth.StateRejected, m.Gate().State())
	assert.True(t, m.Redirect())
	assert.True(t, isQuit(cmd))
	assert.Equal(t, 0, st.subscribed)
}

func TestNilProviderRedirects(t *testing.T) {
	m := New(Options{Store: newFakeStore()})
	m, cmd := update(t, m, sessionStartMsg{})
	m, _ = update(t, m, cmd())
	assert.True(t, m.Redirect())
}

func TestSignOutRedirects(t *testing.T) {
	st := newFakeStore()
	flags := &fakeFlags{guest: true}
	provider := &fakeProvider{err: errors.New("offline")}
	m := New(Options{Store: st, Provider: provider, Flags: flags})
	m, _ = update(t, m, sessionStartMsg{})

	m, cmd := update(t, m, keyRunes("x"))
	require.NotNil(t, cmd)
	msg := cmd()
	signedOut, ok := msg.(model.SignedOutMsg)
	require.True(t, ok)
	assert.EqualError(t, signedOut.Err, "offline")
	assert.Equal(t, 1, flags.cleared)
	assert.Equal(t, 1, provider.signOuts)

	m, cmd = update(t, m, signedOut)
	assert.True(t, m.Redirect(), "sign-out redirects even when the provider failed")
	assert.True(t, isQuit(cmd))
	assert.Equal(t, 1, st.cancelled)
}

func TestCategoryKeysFilter(t *testing.T) {
	m := guestModel(t, newFakeStore())
	m, _ = update(t, m, model.SnapshotMsg{Seq: 1})

	m, _ = update(t, m, keyRunes("3"))
	assert.Equal(t, model.CategoryFood, m.State().Category())
	assert.Equal(t, []string{"Budget Bites", "Noodle Bar"}, listNames(m.ListPresenter().Rows()))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.CategorySocial, m.State().Category())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.CategoryAll, m.State().Category())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, model.CategorySocial, m.State().Category())
}

func TestSearchMode(t *testing.T) {
	m := guestModel(t, newFakeStore())
	m, _ = update(t, m, model.SnapshotMsg{Seq: 1})

	m, _ = update(t, m, keyRunes("/"))
	m, _ = update(t, m, keyRunes("LIBRARY"))
	assert.Equal(t, "LIBRARY", m.State().SearchTerm())
	assert.Equal(t, []string{"The Old Library"}, listNames(m.ListPresenter().Rows()))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "LIBRARY", m.State().SearchTerm(), "enter keeps the term")

	m, _ = update(t, m, keyRunes("/"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.State().SearchTerm())
	assert.Len(t, m.ListPresenter().Rows(), 5)
}

func TestEnterFocusesSelectedLocation(t *testing.T) {
	m := guestModel(t, newFakeStore())
	m, _ = update(t, m, model.SnapshotMsg{Seq: 1})

	m, _ = update(t, m, keyRunes("j"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	popup, ok := m.MapPresenter().Popup()
	require.True(t, ok)
	assert.Equal(t, "demo2", popup.ID)
	assert.Equal(t, FocusZoom, m.MapPresenter().Map().Zoom())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	_, ok = m.MapPresenter().Popup()
	assert.False(t, ok)
}

func TestMapKeysChangeViewport(t *testing.T) {
	m := guestModel(t, newFakeStore())
	zoom := m.MapPresenter().Map().Zoom()

	m, cmd := update(t, m, keyRunes("+"))
	assert.Equal(t, zoom+1, m.MapPresenter().Map().Zoom())
	require.NotNil(t, cmd)
	assert.IsType(t, mapIdleMsg{}, cmd())

	center := m.MapPresenter().Map().Center()
	m, _ = update(t, m, keyRunes("L"))
	assert.Greater(t, m.MapPresenter().Map().Center().Lng, center.Lng)

	m, _ = update(t, m, keyRunes("-"))
	assert.Equal(t, zoom, m.MapPresenter().Map().Zoom())
}

func TestWatchdogFailsUnloadedMap(t *testing.T) {
	m := New(Options{})
	m, _ = update(t, m, mapWatchdogMsg{})
	_, failed := m.MapPresenter().Failed()
	assert.True(t, failed)
}

func TestWatchdogIgnoresLoadedMap(t *testing.T) {
	m := New(Options{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, cmd := update(t, m, mapIdleMsg{})
	assert.Nil(t, cmd, "no tile server configured")
	assert.True(t, m.MapPresenter().Loaded())

	m, _ = update(t, m, mapWatchdogMsg{})
	_, failed := m.MapPresenter().Failed()
	assert.False(t, failed)
}

func TestAddLocationFlow(t *testing.T) {
	st := newFakeStore()
	m := guestModel(t, st)

	m, _ = update(t, m, keyRunes("a"))
	require.NotNil(t, m.form)
	assert.Equal(t, model.ModeInsert, m.mode)

	m, _ = update(t, m, keyRunes("Corner Cafe"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.True(t, m.form.Submitting())

	m, _ = update(t, m, cmd())
	assert.Nil(t, m.form)
	assert.Equal(t, model.ModeNav, m.mode)
	assert.Equal(t, AddSucceededMessage, m.info)
	require.Len(t, st.added, 1)
}

func TestAddLocationFailureKeepsForm(t *testing.T) {
	st := newFakeStore()
	st.addErr = errors.New("quota exceeded")
	m := guestModel(t, st)

	m, _ = update(t, m, keyRunes("a"))
	m, _ = update(t, m, keyRunes("Corner Cafe"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m, _ = update(t, m, cmd())

	require.NotNil(t, m.form)
	assert.Equal(t, AddFailedMessage, m.error)
	assert.False(t, m.form.Submitting())
	assert.Equal(t, "Corner Cafe", m.form.Value(fieldName))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = update(t, m, model.FormCancelledMsg{})
	assert.Nil(t, m.form)
	assert.Equal(t, model.ScreenBrowse, m.screen)
}

func TestViewRendersChrome(t *testing.T) {
	m := guestModel(t, newFakeStore())
	assert.Empty(t, m.View(), "nothing before the first window size")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(t, m, model.SnapshotMsg{Seq: 1})

	view := m.View()
	assert.Contains(t, view, "citynav")
	assert.Contains(t, view, "guest")
	assert.Contains(t, view, "exit guest mode")
	assert.Contains(t, view, "Student Hub Central")

	m, _ = update(t, m, keyRunes("?"))
	assert.Contains(t, m.View(), "Help")
}
