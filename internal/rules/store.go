package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store persists rule records.
type Store struct {
	db *sql.DB
}

// NewStore creates a rule store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Filter specifies criteria for listing rules.
type Filter struct {
	Active *bool
	Kind   *string
}

// Add validates and inserts a rule. The rule's ID and CreatedAt are set on
// success.
func (s *Store) Add(r *Rule) error {
	if problems := r.Validate(); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	libs, err := json.Marshal(r.Libraries)
	if err != nil {
		return fmt.Errorf("marshal libraries: %w", err)
	}
	expr, err := json.Marshal(r.Expression)
	if err != nil {
		return fmt.Errorf("marshal expression: %w", err)
	}
	actions, err := EncodeActions(r.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO rules (name, kind, libraries, expression, actions, buffer_days, priority, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Kind, string(libs), string(expr), string(actions), r.BufferDays, r.Priority, r.Active, now,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// Update validates and rewrites a rule in place.
// Returns ErrNotFound if the rule does not exist.
func (s *Store) Update(r *Rule) error {
	if problems := r.Validate(); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	libs, err := json.Marshal(r.Libraries)
	if err != nil {
		return fmt.Errorf("marshal libraries: %w", err)
	}
	expr, err := json.Marshal(r.Expression)
	if err != nil {
		return fmt.Errorf("marshal expression: %w", err)
	}
	actions, err := EncodeActions(r.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE rules SET name = ?, kind = ?, libraries = ?, expression = ?, actions = ?,
			buffer_days = ?, priority = ?, active = ?
		WHERE id = ?`,
		r.Name, r.Kind, string(libs), string(expr), string(actions), r.BufferDays, r.Priority, r.Active, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule %d: %w", r.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update rule %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

// Get retrieves a rule by ID.
// Returns ErrNotFound if the rule does not exist.
func (s *Store) Get(id int64) (*Rule, error) {
	row := s.db.QueryRow(`
		SELECT id, name, kind, libraries, expression, actions, buffer_days, priority, active, created_at, last_run_at, last_match_count
		FROM rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get rule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %d: %w", id, err)
	}
	return r, nil
}

// List returns rules matching the filter, ordered by priority descending
// with creation order breaking ties.
func (s *Store) List(f Filter) ([]*Rule, error) {
	query := `
		SELECT id, name, kind, libraries, expression, actions, buffer_days, priority, active, created_at, last_run_at, last_match_count
		FROM rules`
	var conditions []string
	var args []any
	if f.Active != nil {
		conditions = append(conditions, "active = ?")
		args = append(args, *f.Active)
	}
	if f.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, *f.Kind)
	}
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		for _, c := range conditions[1:] {
			query += " AND " + c
		}
	}
	query += " ORDER BY priority DESC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return results, nil
}

// RecordRun stores the last-run summary on the rule record.
func (s *Store) RecordRun(id int64, at time.Time, matched int) error {
	_, err := s.db.Exec(`UPDATE rules SET last_run_at = ?, last_match_count = ? WHERE id = ?`, at, matched, id)
	if err != nil {
		return fmt.Errorf("record run for rule %d: %w", id, err)
	}
	return nil
}

// Delete removes a rule. Idempotent.
func (s *Store) Delete(id int64) error {
	if _, err := s.db.Exec("DELETE FROM rules WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	r := &Rule{}
	var libs, expr, actions string
	if err := row.Scan(&r.ID, &r.Name, &r.Kind, &libs, &expr, &actions,
		&r.BufferDays, &r.Priority, &r.Active, &r.CreatedAt, &r.LastRunAt, &r.LastMatchCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(libs), &r.Libraries); err != nil {
		return nil, fmt.Errorf("unmarshal libraries: %w", err)
	}
	if err := json.Unmarshal([]byte(expr), &r.Expression); err != nil {
		return nil, fmt.Errorf("unmarshal expression: %w", err)
	}
	decoded, err := DecodeActions([]byte(actions))
	if err != nil {
		return nil, err
	}
	r.Actions = decoded
	return r, nil
}
