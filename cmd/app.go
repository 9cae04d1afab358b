package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"citynav/internal/auth"
	"citynav/internal/basemap"
	"citynav/internal/db"
	"citynav/internal/firestore"
	"citynav/internal/logging"
	"citynav/internal/store"
	"citynav/internal/telemetry"
	"citynav/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

const sentryFlushTimeout = 2 * time.Second

// services are the collaborators shared by every command.
type services struct {
	cfg      *Config
	logger   *slog.Logger
	session  *auth.LocalStore
	identity *auth.IdentityClient
	provider auth.Provider
	closers  []func() error
}

// openServices starts logging and error reporting and builds the session
// store and auth provider.
func openServices(ctx context.Context, cfg *Config) (*services, error) {
	logger, closeLog, err := logging.Init(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	s := &services{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	if err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: "cli",
		Release:     "citynav@" + version,
	}, logger); err != nil {
		logger.Warn("Continuing without error reporting", "error", err)
	}

	s.session, err = auth.NewLocalStore(cfg.ConfigDir)
	if err != nil {
		s.Close()
		return nil, err
	}
	if cfg.FirebaseAPIKey != "" {
		s.identity = auth.NewIdentityClient(cfg.FirebaseAPIKey)
	}
	s.provider = s.buildProvider(ctx)
	return s, nil
}

// buildProvider verifies sessions with the Admin SDK when a project is
// configured and otherwise trusts the stored credential until it expires.
func (s *services) buildProvider(ctx context.Context) auth.Provider {
	var refresher auth.Refresher
	if s.identity != nil {
		refresher = s.identity
	}

	if s.cfg.FirebaseProjectID != "" {
		client, err := auth.NewAdminClient(ctx, s.cfg.FirebaseProjectID, s.cfg.CredentialsFile)
		if err == nil {
			return auth.NewFirebaseProvider(client, refresher, s.session, s.logger)
		}
		s.logger.Warn("Firebase Admin unavailable, using local session check", "error", err)
	}
	return auth.NewLocalProvider(refresher, s.session, s.logger)
}

// openStore opens the configured location store.
func (s *services) openStore(ctx context.Context) (store.Store, error) {
	switch s.cfg.Store {
	case StoreFirestore:
		st, err := firestore.Open(ctx, s.cfg.FirebaseProjectID, s.cfg.CredentialsFile, s.logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		database, err := db.Open(s.cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db.NewStore(database, s.cfg.PollInterval, s.logger), nil
	}
}

func (s *services) openBasemap() (*basemap.Client, error) {
	return basemap.NewClient(basemap.Config{
		URLTemplate: s.cfg.TileURL,
		APIKey:      s.cfg.TileKey,
		UserAgent:   "citynav/" + version,
	})
}

// Close flushes error reports and closes the log file.
func (s *services) Close() error {
	telemetry.Flush(sentryFlushTimeout)
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runApp runs the navigator, sending the user through the login surface
// whenever the navigator asks for it.
func runApp(ctx context.Context, cfg *Config) error {
	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	defer telemetry.RecoverAndCapture(svc.logger)

	// A nil store makes the navigator fall back to demo data.
	var st store.Store
	if opened, err := svc.openStore(ctx); err != nil {
		svc.logger.Error("Failed to open store", "store", cfg.Store, "error", err)
		telemetry.CaptureException(err, map[string]string{"op": "open_store"}, svc.logger)
		fmt.Fprintf(os.Stderr, "ℹ  Location store unavailable: %v\n", err)
	} else {
		st = opened
		defer st.Close()
	}

	tiles, err := svc.openBasemap()
	if err != nil {
		svc.logger.Warn("Basemap disabled", "error", err)
	}

	for {
		redirect, err := runNavigator(svc, st, tiles)
		if err != nil {
			return err
		}
		if !redirect {
			return nil
		}

		outcome, err := runLogin(svc.session, svc.identity)
		if err != nil {
			return err
		}
		if outcome == loginCancelled {
			return nil
		}
		svc.logger.Info("Returning to navigator", "outcome", outcome.String())
	}
}

// runNavigator runs one navigator session and reports whether it ended with a
// redirect to the login surface.
func runNavigator(svc *services, st store.Store, tiles *basemap.Client) (bool, error) {
	app := ui.New(ui.Options{
		Store:    st,
		Provider: svc.provider,
		Flags:    svc.session,
		Basemap:  tiles,
		Logger:   svc.logger,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("navigator failed: %w", err)
	}
	m, ok := finalModel.(ui.Model)
	if !ok {
		return false, fmt.Errorf("unexpected navigator model type")
	}
	return m.Redirect(), nil
}
