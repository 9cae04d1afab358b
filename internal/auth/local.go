package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SessionFileName is the file in the config directory holding the guest flag
// and the stored credential.
const SessionFileName = "session.json"

// Credential is a signed-in user's tokens.
type Credential struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the ID token has expired at now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// CredentialStore persists the signed-in user's credential.
type CredentialStore interface {
	Credential() (*Credential, error)
	SaveCredential(Credential) error
	ClearCredential() error
}

type sessionFile struct {
	GuestMode  string      `json:"guestMode,omitempty"`
	Credential *Credential `json:"credential,omitempty"`
}

// LocalStore keeps session state in a JSON file readable only by the owner.
type LocalStore struct {
	mu   sync.Mutex
	path string
}

// NewLocalStore stores session state in dir, creating it if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &LocalStore{path: filepath.Join(dir, SessionFileName)}, nil
}

// Path returns the session file path.
func (s *LocalStore) Path() string {
	return s.path
}

func (s *LocalStore) load() (sessionFile, error) {
	var f sessionFile
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read session: %w", err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return sessionFile{}, fmt.Errorf("failed to parse session: %w", err)
	}
	return f, nil
}

func (s *LocalStore) save(f sessionFile) error {
	if f.GuestMode == "" && f.Credential == nil {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *LocalStore) update(fn func(*sessionFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		// A corrupt file is overwritten.
		f = sessionFile{}
	}
	fn(&f)
	return s.save(f)
}

// GuestMode reports whether the guest flag is set. Unreadable state counts as
// not set.
func (s *LocalStore) GuestMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return false
	}
	return f.GuestMode == "true"
}

// SetGuestMode sets or clears the guest flag.
func (s *LocalStore) SetGuestMode(on bool) error {
	return s.update(func(f *sessionFile) {
		if on {
			f.GuestMode = "true"
		} else {
			f.GuestMode = ""
		}
	})
}

// ClearGuestMode removes the guest flag.
func (s *LocalStore) ClearGuestMode() error {
	return s.SetGuestMode(false)
}

// Credential returns the stored credential, or nil when signed out.
func (s *LocalStore) Credential() (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Credential, nil
}

// SaveCredential stores c.
func (s *LocalStore) SaveCredential(c Credential) error {
	return s.update(func(f *sessionFile) {
		f.Credential = &c
	})
}

// ClearCredential removes the stored credential.
func (s *LocalStore) ClearCredential() error {
	return s.update(func(f *sessionFile) {
		f.Credential = nil
	})
}
