package model

// Bubble Tea message types

// SnapshotMsg is sent for every full snapshot delivered by the location store.
type SnapshotMsg struct {
	Locations []Location
	Seq       int
}

// SnapshotErrorMsg is sent when the store subscription fails. The subscription
// is over once this arrives.
type SnapshotErrorMsg struct {
	Err error
}

// LocationAddedMsg is sent when the store acknowledged a new location.
type LocationAddedMsg struct {
	ID string
}

// LocationAddFailedMsg is sent when the store rejected a new location.
type LocationAddFailedMsg struct {
	Err error
}

// AuthStateMsg is sent when the auth provider reports the current user.
// A nil User means nobody is signed in.
type AuthStateMsg struct {
	User *User
}

// SignedOutMsg is sent once sign-out finished. Err is informational only;
// the navigator redirects to the login surface either way.
type SignedOutMsg struct {
	Err error
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// User identifies a signed-in visitor.
type User struct {
	UID   string
	Email string
}

// Screen represents different app screens.
type Screen int

const (
	ScreenBrowse Screen = iota
	ScreenAddLocation
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeSearch
	ModeInsert
)
