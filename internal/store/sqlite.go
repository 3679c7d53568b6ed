package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/illusim/internal/diffusion"
	"github.com/nvandessel/illusim/internal/experiment"
)

// ResultStore persists experiment batches and their trial records in a
// SQLite database.
type ResultStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Meta describes one stored batch run.
type Meta struct {
	ID           int64
	CreatedAt    time.Time
	Nodes        int
	EdgesPerNode int
	Trials       int
	Rule         string
	Phi          float64
	MaxRounds    int
	Seed         uint64
}

// Open opens the results database at path, creating it and its parent
// directory if needed.
func Open(path string) (*ResultStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &ResultStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *ResultStore) Path() string {
	return s.path
}

// SaveBatch stores one batch run and returns its experiment ID. The
// experiment row, its trial records, and its failures share a transaction.
func (s *ResultStore) SaveBatch(ctx context.Context, meta Meta, batch experiment.Batch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO experiments (created_at, nodes, edges_per_node, trials, rule, phi, max_rounds, seed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		meta.Nodes, meta.EdgesPerNode, meta.Trials, meta.Rule, meta.Phi, meta.MaxRounds, int64(meta.Seed))
	if err != nil {
		return 0, fmt.Errorf("failed to insert experiment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read experiment id: %w", err)
	}

	for _, rec := range batch.Records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trials (experiment_id, trial_idx, influencers, fraction, static_illusion, final_illusion, rounds, halt)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.Index, rec.Influencers, rec.Fraction,
			rec.StaticIllusion, rec.FinalIllusion, rec.Rounds, string(rec.Halt)); err != nil {
			return 0, fmt.Errorf("failed to insert trial %d at fraction %v: %w", rec.Index, rec.Fraction, err)
		}
	}

	for _, f := range batch.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trial_failures (experiment_id, trial_idx, fraction, error)
			 VALUES (?, ?, ?, ?)`,
			id, f.Index, f.Fraction, f.Err.Error()); err != nil {
			return 0, fmt.Errorf("failed to insert failure %d at fraction %v: %w", f.Index, f.Fraction, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}
	return id, nil
}

// Experiments lists stored batch runs, newest first.
func (s *ResultStore) Experiments(ctx context.Context) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, nodes, edges_per_node, trials, rule, phi, max_rounds, seed
		 FROM experiments ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query experiments: %w", err)
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		var m Meta
		var created string
		var seed int64
		if err := rows.Scan(&m.ID, &created, &m.Nodes, &m.EdgesPerNode,
			&m.Trials, &m.Rule, &m.Phi, &m.MaxRounds, &seed); err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		m.Seed = uint64(seed)
		if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			m.CreatedAt = ts
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Trials returns the records of one stored batch, ordered by trial index
// and fraction.
func (s *ResultStore) Trials(ctx context.Context, experimentID int64) ([]experiment.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT trial_idx, influencers, fraction, static_illusion, final_illusion, rounds, halt
		 FROM trials WHERE experiment_id = ? ORDER BY trial_idx, fraction`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	var recs []experiment.Trial
	for rows.Next() {
		var rec experiment.Trial
		var halt string
		if err := rows.Scan(&rec.Index, &rec.Influencers, &rec.Fraction,
			&rec.StaticIllusion, &rec.FinalIllusion, &rec.Rounds, &halt); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		rec.Halt = diffusion.HaltReason(halt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Failures returns the isolated failures of one stored batch, ordered by
// trial index and fraction.
func (s *ResultStore) Failures(ctx context.Context, experimentID int64) ([]experiment.Failure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT trial_idx, fraction, error
		 FROM trial_failures WHERE experiment_id = ? ORDER BY trial_idx, fraction`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var fails []experiment.Failure
	for rows.Next() {
		var f experiment.Failure
		var msg string
		if err := rows.Scan(&f.Index, &f.Fraction, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Err = errors.New(msg)
		fails = append(fails, f)
	}
	return fails, rows.Err()
}

// Close closes the underlying database.
func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
