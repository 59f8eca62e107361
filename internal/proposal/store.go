// Package proposal persists reply proposals and enforces their status
// lifecycle. Two backends share one contract: a whole-file JSON store (the
// default) and a SQLite table.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xreply/internal/config"
	"xreply/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound reports an unknown proposal id.
	ErrNotFound = errors.New("proposal not found")
	// ErrInvalidTransition rejects a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStorage wraps durable read/write failures.
	ErrStorage = errors.New("proposal storage failure")
)

// Store is the durable proposal collection. Mutations are serialised per
// store instance.
type Store interface {
	// List returns every proposal in insertion order. A store that was never
	// written returns an empty slice.
	List(ctx context.Context) ([]types.Proposal, error)
	// AddBatch appends proposals. Duplicates of the same post are kept.
	AddBatch(ctx context.Context, proposals []types.Proposal) error
	Get(ctx context.Context, id string) (types.Proposal, error)
	// Update merges patch into the proposal, stamps UpdatedAt and returns the
	// stored record. Illegal status changes fail with ErrInvalidTransition
	// and leave the record untouched.
	Update(ctx context.Context, id string, patch types.Patch) (types.Proposal, error)
	// Delete removes the proposal or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Close() error
}

// New wraps post in a fresh pending proposal.
func New(post types.Post, reply string, now time.Time) types.Proposal {
	now = now.UTC()
	return types.Proposal{
		ID:        uuid.NewString(),
		Post:      post,
		ReplyText: reply,
		Status:    types.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Open returns the backend selected by cfg.
func Open(cfg config.StorageConfig, logger *zap.Logger, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendJSON:
		return NewJSONStore(cfg.Path, logger, opts...)
	case config.BackendSQLite:
		return OpenSQLite(cfg.Path, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// applyPatch is the transition guard shared by all backends.
func applyPatch(pr types.Proposal, patch types.Patch, now time.Time) (types.Proposal, error) {
	if err := patch.Validate(); err != nil {
		return pr, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if patch.Status != nil && !types.CanTransition(pr.Status, *patch.Status) {
		return pr, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, pr.Status, *patch.Status)
	}
	return patch.Apply(pr, now.UTC()), nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
