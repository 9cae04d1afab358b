// Package firestore serves locations from a Cloud Firestore collection as a
// live store.Store.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"citynav/internal/logging"
	"citynav/internal/model"
	"citynav/internal/store"
)

// Document is one document of a query snapshot.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// SnapshotStream yields the full result set after every change.
type SnapshotStream interface {
	Next() ([]Document, error)
	Stop()
}

// Backend is the slice of Firestore the store needs.
type Backend interface {
	Listen(ctx context.Context) SnapshotStream
	Create(ctx context.Context, fields map[string]interface{}) (string, error)
	Close() error
}

// Store implements store.Store on top of a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// NewStore wraps a backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{backend: backend, logger: logger.With("component", "firestore")}
}

// Open connects to the project's Firestore database. An empty credentials
// path falls back to application default credentials.
func Open(ctx context.Context, projectID, credentialsFile string, logger *slog.Logger) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore init: %w", err)
	}
	return NewStore(&ClientBackend{Client: client}, logger), nil
}

// Subscribe implements store.Store.
func (s *Store) Subscribe(ctx context.Context, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Subscription {
	ctx, sub := store.NewCancelSubscription(ctx)
	stream := s.backend.Listen(ctx)

	go func() {
		defer sub.Finish()
		defer stream.Stop()

		for {
			docs, err := stream.Next()
			if err != nil {
				if ctx.Err() != nil || isStopped(err) {
					return
				}
				s.logger.Error("Snapshot listener failed", "error", err)
				onError(err)
				return
			}
			if ctx.Err() != nil {
				return
			}
			onSnapshot(s.convert(docs))
		}
	}()

	return sub
}

func (s *Store) convert(docs []Document) []model.Location {
	locs := make([]model.Location, 0, len(docs))
	for _, d := range docs {
		loc, err := FirestoreToLocation(d.ID, d.Data)
		if err != nil {
			s.logger.Warn("Skipping document", "id", d.ID, "error", err)
			continue
		}
		locs = append(locs, loc)
	}
	return locs
}

func isStopped(err error) bool {
	if errors.Is(err, iterator.Done) || errors.Is(err, context.Canceled) {
		return true
	}
	return status.Code(err) == codes.Canceled
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, loc model.NewLocation) (string, error) {
	id, err := s.backend.Create(ctx, LocationToFirestore(loc))
	if err != nil {
		return "", fmt.Errorf("failed to add location: %w", err)
	}
	s.logger.Info("Location added", "id", id, "category", loc.Category)
	return id, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.backend.Close()
}

// ClientBackend is the Backend backed by a real Firestore client.
type ClientBackend struct {
	Client *firestore.Client
}

func (b *ClientBackend) collection() *firestore.CollectionRef {
	return b.Client.Collection(LocationsCollection)
}

// Listen implements Backend.
func (b *ClientBackend) Listen(ctx context.Context) SnapshotStream {
	return &queryStream{it: b.collection().Snapshots(ctx)}
}

// Create implements Backend.
func (b *ClientBackend) Create(ctx context.Context, fields map[string]interface{}) (string, error) {
	ref, _, err := b.collection().Add(ctx, fields)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// Close implements Backend.
func (b *ClientBackend) Close() error {
	return b.Client.Close()
}

type queryStream struct {
	it *firestore.QuerySnapshotIterator
}

func (q *queryStream) Next() ([]Document, error) {
	snap, err := q.it.Next()
	if err != nil {
		return nil, err
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, Document{ID: d.Ref.ID, Data: d.Data()})
	}
	return out, nil
}

func (q *queryStream) Stop() {
	q.it.Stop()
}
