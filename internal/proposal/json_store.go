package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"xreply/internal/metrics"
	"xreply/internal/types"

	"go.uber.org/zap"
)

// JSONStore keeps the whole collection in one JSON array on disk. Every
// operation is a read-modify-write of the full file under the store mutex;
// the file is replaced atomically.
type JSONStore struct {
	path   string
	logger *zap.Logger
	opts   options

	mu sync.Mutex
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore opens the store at path, creating the file as [] if needed.
func NewJSONStore(path string, logger *zap.Logger, opts ...Option) (*JSONStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &JSONStore{path: path, logger: logger, opts: buildOptions(opts)}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("create directory", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.save(nil); err != nil {
			return nil, err
		}
		logger.Info("initialized proposal store", zap.String("path", path))
	}
	return s, nil
}

func (s *JSONStore) List(ctx context.Context) (out []types.Proposal, err error) {
	defer func() { metrics.IncStoreOp("list", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) AddBatch(ctx context.Context, proposals []types.Proposal) (err error) {
	defer func() { metrics.IncStoreOp("add", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(proposals) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	if err := s.save(append(all, proposals...)); err != nil {
		return err
	}
	s.logger.Debug("proposals added", zap.Int("count", len(proposals)), zap.Int("total", len(all)+len(proposals)))
	return nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (types.Proposal, error) {
	all, err := s.List(ctx)
	if err != nil {
		return types.Proposal{}, err
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Proposal{}, ErrNotFound
}

func (s *JSONStore) Update(ctx context.Context, id string, patch types.Patch) (updated types.Proposal, err error) {
	defer func() { metrics.IncStoreOp("update", err) }()
	if err := ctx.Err(); err != nil {
		return types.Proposal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return types.Proposal{}, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		next, err := applyPatch(all[i], patch, s.opts.now())
		if err != nil {
			return all[i], err
		}
		all[i] = next
		if err := s.save(all); err != nil {
			return types.Proposal{}, err
		}
		return next, nil
	}
	return types.Proposal{}, ErrNotFound
}

func (s *JSONStore) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.IncStoreOp("delete", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == id {
			return s.save(append(all[:i], all[i+1:]...))
		}
	}
	return ErrNotFound
}

// Close is a no-op; the file is closed after every operation.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) load() ([]types.Proposal, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []types.Proposal{}, nil
	}
	if err != nil {
		return nil, storageErr("read", err)
	}
	out := []types.Proposal{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, storageErr("decode "+s.path, err)
	}
	return out, nil
}

func (s *JSONStore) save(all []types.Proposal) error {
	if all == nil {
		all = []types.Proposal{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return storageErr("encode", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".proposals-*.json")
	if err != nil {
		return storageErr("write", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return storageErr("write", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("write", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return storageErr("replace", err)
	}
	return nil
}
