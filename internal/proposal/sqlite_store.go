package proposal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xreply/internal/metrics"
	"xreply/internal/types"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps proposals in one SQLite table. The embedded post is a
// JSON column; rowid preserves insertion order.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	opts   options

	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (and migrates) the database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(path string, logger *zap.Logger, opts ...Option) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageErr("create directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", err)
	}
	// One connection: keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger, opts: buildOptions(opts)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, storageErr("migrate", err)
	}
	logger.Info("opened proposal database", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	PRAGMA journal_mode=WAL;
	CREATE TABLE IF NOT EXISTS proposals (
	  id TEXT PRIMARY KEY,
	  post TEXT NOT NULL,
	  reply_text TEXT NOT NULL,
	  status TEXT NOT NULL,
	  created_at TEXT NOT NULL,
	  updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
	`)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectProposals = `SELECT id, post, reply_text, status, created_at, updated_at FROM proposals`

func (s *SQLiteStore) List(ctx context.Context) (out []types.Proposal, err error) {
	defer func() { metrics.IncStoreOp("list", err) }()

	rows, err := s.db.QueryContext(ctx, selectProposals+` ORDER BY rowid`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	out = []types.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return out, nil
}

func (s *SQLiteStore) AddBatch(ctx context.Context, proposals []types.Proposal) (err error) {
	defer func() { metrics.IncStoreOp("add", err) }()
	if len(proposals) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO proposals(id, post, reply_text, status, created_at, updated_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return storageErr("prepare insert", err)
	}
	defer stmt.Close()

	for _, p := range proposals {
		post, err := json.Marshal(p.Post)
		if err != nil {
			return storageErr("encode post", err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, string(post), p.ReplyText, string(p.Status),
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt)); err != nil {
			return storageErr("insert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	s.logger.Debug("proposals added", zap.Int("count", len(proposals)))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (types.Proposal, error) {
	return getProposal(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProposal(ctx context.Context, q queryRower, id string) (types.Proposal, error) {
	p, err := scanProposal(q.QueryRowContext(ctx, selectProposals+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Proposal{}, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch types.Patch) (updated types.Proposal, err error) {
	defer func() { metrics.IncStoreOp("update", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Proposal{}, storageErr("begin", err)
	}
	defer tx.Rollback()

	current, err := getProposal(ctx, tx, id)
	if err != nil {
		return types.Proposal{}, err
	}
	next, err := applyPatch(current, patch, s.opts.now())
	if err != nil {
		return current, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE proposals SET reply_text = ?, status = ?, updated_at = ? WHERE id = ?`,
		next.ReplyText, string(next.Status), formatTime(next.UpdatedAt), id); err != nil {
		return types.Proposal{}, storageErr("update", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Proposal{}, storageErr("commit", err)
	}
	return next, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.IncStoreOp("delete", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(row scanner) (types.Proposal, error) {
	var (
		p                  types.Proposal
		post, status       string
		created, updatedAt string
	)
	if err := row.Scan(&p.ID, &post, &p.ReplyText, &status, &created, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, storageErr("scan", err)
	}
	if err := json.Unmarshal([]byte(post), &p.Post); err != nil {
		return p, storageErr("decode post", err)
	}
	p.Status = types.Status(status)

	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return p, storageErr("decode created_at", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return p, storageErr("decode updated_at", err)
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
