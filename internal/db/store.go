package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"citynav/internal/logging"
	"citynav/internal/model"
	"citynav/internal/store"
)

// DefaultPollInterval is how often a subscription checks for new commits.
const DefaultPollInterval = time.Second

// Store serves the locations table as a live store.Store. Subscriptions poll
// PRAGMA data_version on a dedicated connection and emit a full snapshot
// whenever another connection committed.
type Store struct {
	db       *sql.DB
	interval time.Duration
	logger   *slog.Logger
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an open database. A non-positive interval uses
// DefaultPollInterval.
func NewStore(db *sql.DB, interval time.Duration, logger *slog.Logger) *Store {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{db: db, interval: interval, logger: logger.With("component", "sqlite")}
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Subscription {
	ctx, sub := store.NewCancelSubscription(ctx)
	go func() {
		defer sub.Finish()
		if err := s.poll(ctx, onSnapshot); err != nil && ctx.Err() == nil {
			s.logger.Error("Subscription ended", "error", err)
			onError(err)
		}
	}()
	return sub
}

func (s *Store) poll(ctx context.Context, onSnapshot store.SnapshotFunc) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve connection: %w", err)
	}
	defer conn.Close()

	version, err := dataVersion(ctx, conn)
	if err != nil {
		return err
	}
	if err := s.emit(ctx, conn, onSnapshot); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		v, err := dataVersion(ctx, conn)
		if err != nil {
			return err
		}
		if v == version {
			continue
		}
		version = v
		if err := s.emit(ctx, conn, onSnapshot); err != nil {
			return err
		}
	}
}

func (s *Store) emit(ctx context.Context, conn *sql.Conn, onSnapshot store.SnapshotFunc) error {
	locs, err := listLocations(ctx, conn)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	s.logger.Debug("Snapshot delivered", "count", len(locs))
	onSnapshot(locs)
	return nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read data version: %w", err)
	}
	return v, nil
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, loc model.NewLocation) (string, error) {
	id, err := InsertLocation(ctx, s.db, loc)
	if err != nil {
		return "", err
	}
	s.logger.Info("Location added", "id", id, "category", loc.Category)
	return id, nil
}

// Seed inserts the given locations, skipping ids that already exist.
func Seed(ctx context.Context, db *sql.DB, locs []model.Location) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, l := range locs {
		inserted, err := insertLocationWithID(ctx, tx, l)
		if err != nil {
			return 0, err
		}
		if inserted {
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	return n, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
