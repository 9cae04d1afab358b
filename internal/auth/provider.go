package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"citynav/internal/logging"
	"citynav/internal/model"
)

// Provider is the identity provider boundary.
type Provider interface {
	// OnAuthStateChanged calls fn with the current user, or nil when nobody
	// is signed in. The returned func stops further notifications.
	OnAuthStateChanged(ctx context.Context, fn func(*model.User)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// TokenVerifier is the part of the Firebase Admin auth client the provider
// uses. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Refresher exchanges a refresh token for a new ID token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*Credential, error)
}

// NewAdminClient initializes the Firebase Admin SDK auth client.
func NewAdminClient(ctx context.Context, projectID, credentialsFile string) (*fbauth.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init: %w", err)
	}
	return client, nil
}

// FirebaseProvider resolves the stored credential against Firebase Auth.
type FirebaseProvider struct {
	verifier  TokenVerifier
	refresher Refresher
	creds     CredentialStore
	isExpired func(error) bool
	logger    *slog.Logger
}

var _ Provider = (*FirebaseProvider)(nil)

// NewFirebaseProvider creates a provider. refresher may be nil, in which case
// an expired token signs the user out.
func NewFirebaseProvider(verifier TokenVerifier, refresher Refresher, creds CredentialStore, logger *slog.Logger) *FirebaseProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FirebaseProvider{
		verifier:  verifier,
		refresher: refresher,
		creds:     creds,
		isExpired: fbauth.IsIDTokenExpired,
		logger:    logger.With("component", "auth"),
	}
}

// OnAuthStateChanged implements Provider.
func (p *FirebaseProvider) OnAuthStateChanged(ctx context.Context, fn func(*model.User)) func() {
	return notifyOnce(ctx, p.CurrentUser, fn)
}

// CurrentUser verifies the stored ID token, refreshing it once if it expired.
func (p *FirebaseProvider) CurrentUser(ctx context.Context) *model.User {
	cred, err := p.creds.Credential()
	if err != nil {
		p.logger.Warn("Failed to read credential", "error", err)
		return nil
	}
	if cred == nil || cred.IDToken == "" {
		return nil
	}

	tok, err := p.verifier.VerifyIDTokenAndCheckRevoked(ctx, cred.IDToken)
	if err != nil && p.isExpired(err) && p.refresher != nil && cred.RefreshToken != "" {
		fresh, rerr := p.refresher.Refresh(ctx, cred.RefreshToken)
		if rerr != nil {
			p.logger.Info("Token refresh failed", "error", rerr)
			return nil
		}
		if fresh.Email == "" {
			fresh.Email = cred.Email
		}
		if serr := p.creds.SaveCredential(*fresh); serr != nil {
			p.logger.Warn("Failed to store refreshed credential", "error", serr)
		}
		cred = fresh
		tok, err = p.verifier.VerifyIDTokenAndCheckRevoked(ctx, cred.IDToken)
	}
	if err != nil {
		p.logger.Info("Stored session rejected", "error", err)
		return nil
	}

	user := &model.User{UID: tok.UID, Email: cred.Email}
	if email, ok := tok.Claims["email"].(string); ok && email != "" {
		user.Email = email
	}
	return user
}

// SignOut revokes the user's refresh tokens and always forgets the local
// credential. The revoke error, if any, is returned for logging.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	cred, err := p.creds.Credential()
	var revokeErr error
	if err == nil && cred != nil && cred.UID != "" {
		revokeErr = p.verifier.RevokeRefreshTokens(ctx, cred.UID)
	}
	if clearErr := p.creds.ClearCredential(); clearErr != nil {
		return errors.Join(revokeErr, clearErr)
	}
	if revokeErr != nil {
		return fmt.Errorf("failed to revoke session: %w", revokeErr)
	}
	return nil
}

// LocalProvider trusts the stored credential until it expires, refreshing it
// when possible. It is used when no Admin SDK project is configured.
type LocalProvider struct {
	refresher Refresher
	creds     CredentialStore
	now       func() time.Time
	logger    *slog.Logger
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider backed only by the credential store.
func NewLocalProvider(refresher Refresher, creds CredentialStore, logger *slog.Logger) *LocalProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LocalProvider{refresher: refresher, creds: creds, now: time.Now, logger: logger.With("component", "auth")}
}

// OnAuthStateChanged implements Provider.
func (p *LocalProvider) OnAuthStateChanged(ctx context.Context, fn func(*model.User)) func() {
	return notifyOnce(ctx, p.CurrentUser, fn)
}

// CurrentUser returns the stored user while the credential is valid.
func (p *LocalProvider) CurrentUser(ctx context.Context) *model.User {
	cred, err := p.creds.Credential()
	if err != nil || cred == nil || cred.IDToken == "" {
		return nil
	}
	if cred.Expired(p.now()) {
		if p.refresher == nil || cred.RefreshToken == "" {
			return nil
		}
		fresh, err := p.refresher.Refresh(ctx, cred.RefreshToken)
		if err != nil {
			p.logger.Info("Token refresh failed", "error", err)
			return nil
		}
		fresh.Email = cred.Email
		if err := p.creds.SaveCredential(*fresh); err != nil {
			p.logger.Warn("Failed to store refreshed credential", "error", err)
		}
		cred = fresh
	}
	return &model.User{UID: cred.UID, Email: cred.Email}
}

// SignOut implements Provider.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	return p.creds.ClearCredential()
}

// notifyOnce resolves the user off the caller's goroutine and delivers it
// unless unsubscribed first.
func notifyOnce(ctx context.Context, resolve func(context.Context) *model.User, fn func(*model.User)) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		user := resolve(ctx)
		if ctx.Err() != nil {
			return
		}
		fn(user)
	}()
	return cancel
}
