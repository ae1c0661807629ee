package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Build is one recorded pipeline run.
type Build struct {
	ID         string `json:"id" yaml:"id"`
	Seq        int64  `json:"seq" yaml:"seq"`
	Module     string `json:"module" yaml:"module"`
	Target     string `json:"target" yaml:"target"`
	Procedures int    `json:"procedures" yaml:"procedures"`
}

// Procedure is one cached procedure. SurfaceHash, Name and Target form the
// key.
type Procedure struct {
	SurfaceHash string `json:"surface_hash" yaml:"surface_hash"`
	Name        string `json:"name" yaml:"name"`
	Target      string `json:"target" yaml:"target"`
	Surface     string `json:"surface" yaml:"surface"`
	Lifecycle   string `json:"lifecycle" yaml:"lifecycle"`
	Text        string `json:"text" yaml:"text"`
	// Cached is set by ProceduresForBuild when the build found the procedure
	// already stored.
	Cached bool `json:"cached" yaml:"cached"`
}

// ConflictError reports a procedure key already holding different text.
type ConflictError struct {
	SurfaceHash string
	Name        string
	Target      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("procedure %s (surface %s, target %s) already cached with different text",
		e.Name, e.SurfaceHash, e.Target)
}

// IsConflictError reports whether err is (or wraps) a ConflictError.
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// RecordBuild inserts a build and returns its sequence number. Sequence
// numbers are assigned in insertion order starting at 1. Recording the same
// id again is a no-op returning the original sequence number.
func (s *Store) RecordBuild(ctx context.Context, id, module, target string) (int64, error) {
	// WHERE true disambiguates the upsert clause from a join constraint.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (id, seq, module, target)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ? FROM builds WHERE true
		ON CONFLICT(id) DO NOTHING
	`, id, module, target)
	if err != nil {
		return 0, fmt.Errorf("record build: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM builds WHERE id = ?`, id).Scan(&seq); err != nil {
		return 0, fmt.Errorf("record build: %w", err)
	}
	return seq, nil
}

// PutProcedure caches p and links it to buildID, which must already be
// recorded. It reports whether the procedure was already cached.
//
// Returns *ConflictError if the key holds different text.
func (s *Store) PutProcedure(ctx context.Context, buildID string, p Procedure) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("put procedure: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO procedures (surface_hash, name, target, surface, lifecycle, text)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, p.SurfaceHash, p.Name, p.Target, p.Surface, p.Lifecycle, p.Text)
	if err != nil {
		return false, fmt.Errorf("put procedure %s: %w", p.Name, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put procedure %s: %w", p.Name, err)
	}

	cached := inserted == 0
	if cached {
		var text string
		err := tx.QueryRowContext(ctx, `
			SELECT text FROM procedures
			WHERE surface_hash = ? AND name = ? AND target = ?
		`, p.SurfaceHash, p.Name, p.Target).Scan(&text)
		if err != nil {
			return false, fmt.Errorf("put procedure %s: %w", p.Name, err)
		}
		if text != p.Text {
			return false, &ConflictError{SurfaceHash: p.SurfaceHash, Name: p.Name, Target: p.Target}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO build_procedures (build_id, name, surface_hash, target, cached)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, buildID, p.Name, p.SurfaceHash, p.Target, cached)
	if err != nil {
		return false, fmt.Errorf("link procedure %s to build %s: %w", p.Name, buildID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("put procedure %s: %w", p.Name, err)
	}
	return cached, nil
}

// LookupProcedure returns the cached procedure for a key.
// Returns (Procedure{}, false, nil) if the key is not cached.
func (s *Store) LookupProcedure(ctx context.Context, surfaceHash, name, target string) (Procedure, bool, error) {
	p := Procedure{SurfaceHash: surfaceHash, Name: name, Target: target}
	err := s.db.QueryRowContext(ctx, `
		SELECT surface, lifecycle, text FROM procedures
		WHERE surface_hash = ? AND name = ? AND target = ?
	`, surfaceHash, name, target).Scan(&p.Surface, &p.Lifecycle, &p.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return Procedure{}, false, nil
	}
	if err != nil {
		return Procedure{}, false, fmt.Errorf("lookup procedure %s: %w", name, err)
	}
	return p, true, nil
}

// ProceduresForBuild returns the procedures linked to a build ordered by name.
// Returns an empty slice (not nil) for an unknown build.
func (s *Store) ProceduresForBuild(ctx context.Context, buildID string) ([]Procedure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.surface_hash, p.name, p.target, p.surface, p.lifecycle, p.text, bp.cached
		FROM build_procedures bp
		JOIN procedures p
		  ON p.surface_hash = bp.surface_hash AND p.name = bp.name AND p.target = bp.target
		WHERE bp.build_id = ?
		ORDER BY p.name COLLATE BINARY ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query build procedures: %w", err)
	}
	defer rows.Close()

	procedures := []Procedure{}
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.SurfaceHash, &p.Name, &p.Target, &p.Surface, &p.Lifecycle, &p.Text, &p.Cached); err != nil {
			return nil, fmt.Errorf("scan build procedure: %w", err)
		}
		procedures = append(procedures, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build procedures: %w", err)
	}
	return procedures, nil
}

// Builds returns every recorded build ordered by sequence number.
func (s *Store) Builds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.seq, b.module, b.target, COUNT(bp.name)
		FROM builds b
		LEFT JOIN build_procedures bp ON bp.build_id = b.id
		GROUP BY b.id
		ORDER BY b.seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.Seq, &b.Module, &b.Target, &b.Procedures); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}
