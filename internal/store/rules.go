package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/fdn/internal/rules"
)

// CollapseTarget is a stored collapse rule.
type CollapseTarget struct {
	ID        int64  `json:"id"`
	Value     string `json:"value"`
	CreatedAt string `json:"created_at"`
}

// Term is a stored term substitution.
type Term struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	CreatedAt string `json:"created_at"`
}

// Rules assembles the active rule set. The separator is the oldest row of
// the separators table, or rules.DefaultSeparator when the table is empty.
// Store implements rules.Provider.
func (s *Store) Rules(ctx context.Context) (rules.Rules, error) {
	sep, err := s.Separator(ctx)
	if err != nil {
		return rules.Rules{}, err
	}

	targets, err := s.CollapseTargets(ctx)
	if err != nil {
		return rules.Rules{}, err
	}

	terms, err := s.Terms(ctx)
	if err != nil {
		return rules.Rules{}, err
	}

	r := rules.Rules{
		Separator:       sep,
		CollapseTargets: make([]string, 0, len(targets)),
		Terms:           make(map[string]string, len(terms)),
	}
	for _, t := range targets {
		r.CollapseTargets = append(r.CollapseTargets, t.Value)
	}
	for _, t := range terms {
		r.Terms[t.Key] = t.Value
	}
	return r, nil
}

// Separator returns the active separator.
func (s *Store) Separator(ctx context.Context) (string, error) {
	var sep string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM separators ORDER BY id ASC LIMIT 1",
	).Scan(&sep)
	if errors.Is(err, sql.ErrNoRows) {
		return rules.DefaultSeparator, nil
	}
	if err != nil {
		return "", fmt.Errorf("read separator: %w", err)
	}
	return sep, nil
}

// SetSeparator replaces the active separator.
func (s *Store) SetSeparator(ctx context.Context, sep string) error {
	if sep == "" {
		return fmt.Errorf("set separator: %w", rules.ErrEmptySeparator)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set separator: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM separators"); err != nil {
		return fmt.Errorf("set separator: clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO separators (value) VALUES (?)", sep); err != nil {
		return fmt.Errorf("set separator: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set separator: commit: %w", err)
	}
	return nil
}

// CollapseTargets returns every collapse target in insertion order.
// Returns an empty slice (not nil) when none exist.
func (s *Store) CollapseTargets(ctx context.Context) ([]CollapseTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, value, created_at FROM collapse_targets ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("query collapse targets: %w", err)
	}
	defer rows.Close()

	targets := []CollapseTarget{}
	for rows.Next() {
		var t CollapseTarget
		if err := rows.Scan(&t.ID, &t.Value, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collapse target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collapse targets: %w", err)
	}
	return targets, nil
}

// AddCollapseTarget inserts a collapse target. Uses ON CONFLICT DO NOTHING;
// added reports whether a new row was written.
func (s *Store) AddCollapseTarget(ctx context.Context, value string) (added bool, err error) {
	if value == "" {
		return false, fmt.Errorf("add collapse target: %w", rules.ErrEmptyTarget)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO collapse_targets (value) VALUES (?) ON CONFLICT(value) DO NOTHING",
		value,
	)
	if err != nil {
		return false, fmt.Errorf("add collapse target: %w", err)
	}
	return affected(res, "add collapse target")
}

// DeleteCollapseTarget removes a collapse target by value.
func (s *Store) DeleteCollapseTarget(ctx context.Context, value string) (deleted bool, err error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM collapse_targets WHERE value = ?", value)
	if err != nil {
		return false, fmt.Errorf("delete collapse target: %w", err)
	}
	return affected(res, "delete collapse target")
}

// Terms returns every term substitution ordered by key.
// Returns an empty slice (not nil) when none exist.
func (s *Store) Terms(ctx context.Context) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, key, value, created_at FROM term_substitutions ORDER BY key COLLATE BINARY ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("query terms: %w", err)
	}
	defer rows.Close()

	terms := []Term{}
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Key, &t.Value, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate terms: %w", err)
	}
	return terms, nil
}

// AddTerm inserts a term substitution, replacing the value of an existing key.
func (s *Store) AddTerm(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("add term: %w", rules.ErrEmptyTermKey)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO term_substitutions (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("add term: %w", err)
	}
	return nil
}

// DeleteTerm removes the term substitution whose key and value both match.
func (s *Store) DeleteTerm(ctx context.Context, key, value string) (deleted bool, err error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM term_substitutions WHERE key = ? AND value = ?",
		key, value,
	)
	if err != nil {
		return false, fmt.Errorf("delete term: %w", err)
	}
	return affected(res, "delete term")
}

// ReplaceRules swaps the whole stored rule set in one transaction.
// The rule set is validated first; nothing is written when it is invalid.
func (s *Store) ReplaceRules(ctx context.Context, r rules.Rules) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("replace rules: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace rules: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"separators", "collapse_targets", "term_substitutions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("replace rules: clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO separators (value) VALUES (?)", r.Separator); err != nil {
		return fmt.Errorf("replace rules: insert separator: %w", err)
	}
	for _, target := range r.CollapseTargets {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collapse_targets (value) VALUES (?) ON CONFLICT(value) DO NOTHING",
			target,
		); err != nil {
			return fmt.Errorf("replace rules: insert collapse target %q: %w", target, err)
		}
	}
	for _, rep := range r.SortedTerms() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO term_substitutions (key, value) VALUES (?, ?)",
			rep.Old, rep.New,
		); err != nil {
			return fmt.Errorf("replace rules: insert term %q: %w", rep.Old, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace rules: commit: %w", err)
	}
	return nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n > 0, nil
}
