// Package index persists evidence embeddings in SQLite and answers top-k
// inner-product queries over them. Each named index is one table of
// (id, text, embedding-blob) rows; vectors are normalized before storage so
// inner product equals cosine similarity.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"

	"txcopilot/internal/logging"
)

// ErrUnavailable indicates the requested index does not exist or cannot be
// read. Callers degrade to keyword retrieval instead of failing.
var ErrUnavailable = errors.New("index: unavailable")

// Row is one record to index: a stable id and the packed text it embeds.
type Row struct {
	ID        string
	Text      string
	Embedding []float32
}

// Hit is one search result, score descending.
type Hit struct {
	ID    string
	Text  string
	Score float64
}

// Manager owns the SQLite handle behind all named indexes. Safe for
// concurrent use: searches share a read lock, Build takes the write lock.
type Manager struct {
	mu  sync.RWMutex
	db  *sql.DB
	log *zap.Logger
}

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// NewManager opens (or creates) the index database at path. Use ":memory:"
// for an ephemeral index.
func NewManager(path string) (*Manager, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	// One writer at a time keeps modernc's file locking happy.
	db.SetMaxOpenConns(1)
	return &Manager{db: db, log: logging.L("index")}, nil
}

// Close releases the database handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Close()
}

func tableFor(name string) (string, error) {
	if !nameRe.MatchString(name) {
		return "", fmt.Errorf("index: invalid index name %q", name)
	}
	return "idx_" + name, nil
}

// Build creates or replaces the named index from rows. The drop, create and
// inserts run in one transaction, so concurrent searches see either the old
// or the new index, never a partial one. Embeddings are normalized here.
func (m *Manager) Build(ctx context.Context, name string, rows []Row) error {
	table, err := tableFor(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin build: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("index: drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx,
		`CREATE TABLE `+table+` (id TEXT PRIMARY KEY, text TEXT NOT NULL, embedding BLOB NOT NULL)`); err != nil {
		return fmt.Errorf("index: create %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO `+table+` (id, text, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range rows {
		if r.ID == "" || len(r.Embedding) == 0 {
			continue
		}
		vec := normalizeCopy(r.Embedding)
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, EncodeVector(vec)); err != nil {
			return fmt.Errorf("index: insert %s: %w", r.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit build: %w", err)
	}
	m.log.Info("index built", zap.String("name", name), zap.Int("rows", inserted))
	return nil
}

// Exists reports whether the named index has been built.
func (m *Manager) Exists(name string) bool {
	table, err := tableFor(name)
	if err != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int
	err = m.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
	return err == nil && n > 0
}

// Search returns the k nearest rows to vec by inner product. The query
// vector is normalized before scoring. A missing index yields
// ErrUnavailable.
func (m *Manager) Search(ctx context.Context, name string, vec []float32, k int) ([]Hit, error) {
	table, err := tableFor(name)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}
	query := normalizeCopy(vec)

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.db.QueryContext(ctx, `SELECT id, text, embedding FROM `+table)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, name, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var blob []byte
		if err := rows.Scan(&h.ID, &h.Text, &blob); err != nil {
			return nil, fmt.Errorf("index: scan %s: %w", name, err)
		}
		stored, err := DecodeVector(blob)
		if err != nil {
			m.log.Warn("skipping undecodable embedding", zap.String("id", h.ID), zap.Error(err))
			continue
		}
		h.Score = innerProduct(query, stored)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate %s: %w", name, err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func normalizeCopy(v []float32) []float32 {
	cp := make([]float32, len(v))
	copy(cp, v)
	var sum float64
	for _, x := range cp {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return cp
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range cp {
		cp[i] = float32(float64(cp[i]) * inv)
	}
	return cp
}
