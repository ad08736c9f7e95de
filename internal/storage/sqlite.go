package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/neardup/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		source TEXT,
		model TEXT,
		threshold REAL NOT NULL,
		policy TEXT,
		documents INTEGER NOT NULL,
		flagged INTEGER NOT NULL DEFAULT 0,
		cluster_count INTEGER NOT NULL DEFAULT 0,
		clusters TEXT,
		kept TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS pairs (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		file_a TEXT NOT NULL,
		file_b TEXT NOT NULL,
		index_a INTEGER NOT NULL,
		index_b INTEGER NOT NULL,
		doc_sim REAL NOT NULL,
		max_chunk_sim REAL NOT NULL,
		flagged INTEGER NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS cluster_members (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		cluster_id INTEGER NOT NULL,
		kept_idx INTEGER NOT NULL,
		member_idx INTEGER NOT NULL,
		kept_name TEXT,
		member_name TEXT,
		kept_text TEXT,
		member_text TEXT,
		similarity REAL NOT NULL,
		exact INTEGER NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS skipped (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		source TEXT NOT NULL,
		stage TEXT NOT NULL,
		reason TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun inserts a report with all its rows in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *models.RunReport) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	clustersJSON, err := json.Marshal(r.Clusters)
	if err != nil {
		return fmt.Errorf("failed to marshal clusters: %w", err)
	}
	keptJSON, err := json.Marshal(r.Kept)
	if err != nil {
		return fmt.Errorf("failed to marshal kept: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, source, model, threshold, policy, documents, flagged, cluster_count, clusters, kept, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Mode), r.Source, r.Model, r.Threshold, r.Policy, r.Documents,
		r.FlaggedCount(), len(r.Clusters), string(clustersJSON), string(keptJSON), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(r.Pairs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO pairs (run_id, position, file_a, file_b, index_a, index_b, doc_sim, max_chunk_sim, flagged)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, p := range r.Pairs {
			if _, err := stmt.ExecContext(ctx, r.ID, i, p.A, p.B, p.AIndex, p.BIndex, p.DocSim, p.MaxChunkSim, p.Flagged); err != nil {
				return fmt.Errorf("failed to insert pair %d: %w", i, err)
			}
		}
	}

	if len(r.Members) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cluster_members (run_id, position, cluster_id, kept_idx, member_idx, kept_name, member_name, kept_text, member_text, similarity, exact)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, m := range r.Members {
			if _, err := stmt.ExecContext(ctx, r.ID, i, m.ClusterID, m.KeptIndex, m.MemberIndex,
				m.KeptName, m.MemberName, m.KeptText, m.MemberText, m.Similarity, m.Exact); err != nil {
				return fmt.Errorf("failed to insert cluster member %d: %w", i, err)
			}
		}
	}

	if len(r.Skipped) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO skipped (run_id, position, source, stage, reason) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, d := range r.Skipped {
			if _, err := stmt.ExecContext(ctx, r.ID, i, d.Source, d.Stage, d.Reason); err != nil {
				return fmt.Errorf("failed to insert skipped %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// GetRun returns a full report by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.RunReport, error) {
	var (
		r            models.RunReport
		mode         string
		clustersJSON sql.NullString
		keptJSON     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, source, model, threshold, policy, documents, clusters, kept, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &mode, &r.Source, &r.Model, &r.Threshold, &r.Policy, &r.Documents, &clustersJSON, &keptJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	r.Mode = models.Mode(mode)
	if clustersJSON.Valid && clustersJSON.String != "" {
		if err := json.Unmarshal([]byte(clustersJSON.String), &r.Clusters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal clusters: %w", err)
		}
	}
	if keptJSON.Valid && keptJSON.String != "" {
		if err := json.Unmarshal([]byte(keptJSON.String), &r.Kept); err != nil {
			return nil, fmt.Errorf("failed to unmarshal kept: %w", err)
		}
	}

	if r.Pairs, err = s.pairs(ctx, id); err != nil {
		return nil, err
	}
	if r.Members, err = s.members(ctx, id); err != nil {
		return nil, err
	}
	if r.Skipped, err = s.skipped(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) pairs(ctx context.Context, runID string) ([]models.SimilarityPair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_a, file_b, index_a, index_b, doc_sim, max_chunk_sim, flagged
		 FROM pairs WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SimilarityPair
	for rows.Next() {
		var p models.SimilarityPair
		if err := rows.Scan(&p.A, &p.B, &p.AIndex, &p.BIndex, &p.DocSim, &p.MaxChunkSim, &p.Flagged); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) members(ctx context.Context, runID string) ([]models.ClusterMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cluster_id, kept_idx, member_idx, kept_name, member_name, kept_text, member_text, similarity, exact
		 FROM cluster_members WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClusterMember
	for rows.Next() {
		var m models.ClusterMember
		if err := rows.Scan(&m.ClusterID, &m.KeptIndex, &m.MemberIndex, &m.KeptName, &m.MemberName,
			&m.KeptText, &m.MemberText, &m.Similarity, &m.Exact); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) skipped(ctx context.Context, runID string) ([]models.SkippedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, stage, reason FROM skipped WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SkippedDocument
	for rows.Next() {
		var d models.SkippedDocument
		if err := rows.Scan(&d.Source, &d.Stage, &d.Reason); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListRuns returns run summaries, newest first, with offset and limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, offset, limit int) ([]models.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, source, threshold, documents, flagged, cluster_count, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var (
			r    models.RunSummary
			mode string
		)
		if err := rows.Scan(&r.ID, &mode, &r.Source, &r.Threshold, &r.Documents, &r.Flagged, &r.Clusters, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Mode = models.Mode(mode)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its rows.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountRuns returns the total number of stored runs.
func (s *SQLiteStore) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// SizeBytes returns the on-disk size of the database including its WAL files.
// Missing files contribute 0.
func (s *SQLiteStore) SizeBytes() (int64, error) {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
