package auth

import (
	"context"
	"log/slog"

	"citynav/internal/telemetry"
)

// GuestFlags clears the persisted guest flag.
type GuestFlags interface {
	ClearGuestMode() error
}

// SignOut ends the session. It clears the guest flag and asks the provider to
// sign out. Failures are logged and returned for display only: the caller
// redirects to the login surface whatever happens.
func SignOut(ctx context.Context, provider Provider, flags GuestFlags, logger *slog.Logger) error {
	var firstErr error

	if flags != nil {
		if err := flags.ClearGuestMode(); err != nil {
			firstErr = err
			if logger != nil {
				logger.Warn("Failed to clear guest flag", "error", err)
			}
		}
	}

	if provider != nil {
		if err := provider.SignOut(ctx); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if logger != nil {
				logger.Error("Sign out failed", "error", err)
			}
			telemetry.CaptureException(err, map[string]string{"op": "sign_out"}, logger)
		}
	}

	return firstErr
}
