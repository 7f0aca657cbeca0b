package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout is the created_at encoding. Fixed width keeps lexical and
// chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ProvenanceRow is one stored provenance entry. The table holds no
// plaintext name: Fingerprint is a one-way digest of the current name and
// CipherBlob decrypts only with a key derived from it.
type ProvenanceRow struct {
	ID          int64
	Fingerprint string
	CipherBlob  []byte
	UseCount    int
	RunID       string
	CreatedAt   time.Time
}

// RunSummary aggregates the provenance rows written by one run.
type RunSummary struct {
	RunID   string    `json:"run_id"`
	Records int       `json:"records"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// InsertProvenance appends a provenance row and returns its id.
// Rows are never updated; a rename of the same name inserts a new row.
func (s *Store) InsertProvenance(ctx context.Context, row ProvenanceRow) (int64, error) {
	useCount := row.UseCount
	if useCount < 1 {
		useCount = 1
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO provenance (fingerprint, cipher_blob, use_count, run_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		row.Fingerprint,
		row.CipherBlob,
		useCount,
		row.RunID,
		row.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert provenance: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert provenance: last insert id: %w", err)
	}
	return id, nil
}

// LatestProvenance returns the most recently inserted row for a fingerprint.
// found is false when no row matches.
func (s *Store) LatestProvenance(ctx context.Context, fingerprint string) (row ProvenanceRow, found bool, err error) {
	var createdAt string
	err = s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, cipher_blob, use_count, run_id, created_at
		FROM provenance
		WHERE fingerprint = ?
		ORDER BY id DESC
		LIMIT 1
	`, fingerprint).Scan(
		&row.ID,
		&row.Fingerprint,
		&row.CipherBlob,
		&row.UseCount,
		&row.RunID,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ProvenanceRow{}, false, nil
	}
	if err != nil {
		return ProvenanceRow{}, false, fmt.Errorf("query provenance: %w", err)
	}

	row.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return ProvenanceRow{}, false, fmt.Errorf("query provenance: %w", err)
	}
	return row, true, nil
}

// DeleteProvenance removes a single-use row. Rows with use_count above one
// are left in place; deleted reports whether a row was removed.
func (s *Store) DeleteProvenance(ctx context.Context, id int64) (deleted bool, err error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM provenance WHERE id = ? AND use_count = 1",
		id,
	)
	if err != nil {
		return false, fmt.Errorf("delete provenance: %w", err)
	}
	return affected(res, "delete provenance")
}

// CountProvenance returns the number of stored provenance rows.
func (s *Store) CountProvenance(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM provenance").Scan(&n); err != nil {
		return 0, fmt.Errorf("count provenance: %w", err)
	}
	return n, nil
}

// ProvenanceRuns summarizes live provenance rows grouped by run, oldest run
// first. Returns an empty slice (not nil) when the table is empty.
func (s *Store) ProvenanceRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COUNT(*), MIN(created_at), MAX(created_at)
		FROM provenance
		GROUP BY run_id
		ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query provenance runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			run         RunSummary
			first, last string
		)
		if err := rows.Scan(&run.RunID, &run.Records, &first, &last); err != nil {
			return nil, fmt.Errorf("scan provenance run: %w", err)
		}
		if run.First, err = parseTime(first); err != nil {
			return nil, fmt.Errorf("scan provenance run: %w", err)
		}
		if run.Last, err = parseTime(last); err != nil {
			return nil, fmt.Errorf("scan provenance run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provenance runs: %w", err)
	}
	return runs, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}
