package queue

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// Store persists queue items. Writes that race on the same item are
// serialized by guarded updates: a transition only applies if the row is
// still in its expected state, so concurrent rule runs cannot double-fire.
type Store struct {
	db *sql.DB
}

// NewStore creates a queue store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts a pending item. Idempotent per (media, rule): if a pending
// item already exists for the pair, the existing record is loaded into it
// and created is false.
func (s *Store) Add(it *Item) (created bool, err error) {
	existing, err := s.findPending(it.MediaID, it.RuleID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		*it = *existing
		return false, nil
	}

	var showID, season, episode, ordinal *int64
	if it.Episode != nil {
		showID = &it.Episode.ShowID
		s64, e64, o64 := int64(it.Episode.Season), int64(it.Episode.Episode), int64(it.Episode.Ordinal)
		season, episode, ordinal = &s64, &e64, &o64
	}

	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO queue_items (media_id, metadata_id, kind, title, rule_id, show_id, season, episode, ordinal, status, action_at, is_dry_run, error_detail, created_at, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)`,
		it.MediaID, it.MetadataID, it.Kind, it.Title, it.RuleID, showID, season, episode, ordinal, StatusPending, it.ActionAt, it.IsDryRun, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert queue item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("get last insert id: %w", err)
	}
	it.ID = id
	it.Status = StatusPending
	it.CreatedAt = now
	it.LastTransitionAt = now
	return true, nil
}

func (s *Store) findPending(mediaID int64, ruleID *int64) (*Item, error) {
	query := `
		SELECT id, media_id, metadata_id, kind, title, rule_id, show_id, season, episode, ordinal, status, action_at, is_dry_run, error_detail, created_at, last_transition_at
		FROM queue_items WHERE media_id = ? AND status = ?`
	args := []any{mediaID, StatusPending}
	if ruleID != nil {
		query += " AND rule_id = ?"
		args = append(args, *ruleID)
	} else {
		query += " AND rule_id IS NULL"
	}

	it, err := scanItem(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pending item: %w", err)
	}
	return it, nil
}

// Get retrieves a queue item by ID.
// Returns ErrNotFound if the item does not exist.
func (s *Store) Get(id int64) (*Item, error) {
	it, err := scanItem(s.db.QueryRow(`
		SELECT id, media_id, metadata_id, kind, title, rule_id, show_id, season, episode, ordinal, status, action_at, is_dry_run, error_detail, created_at, last_transition_at
		FROM queue_items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get queue item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item %d: %w", id, err)
	}
	return it, nil
}

// List returns queue items matching the filter, oldest first.
func (s *Store) List(f Filter) ([]*Item, error) {
	var conditions []string
	var args []any
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *f.Status)
	}
	if f.RuleID != nil {
		conditions = append(conditions, "rule_id = ?")
		args = append(args, *f.RuleID)
	}
	if f.MediaID != nil {
		conditions = append(conditions, "media_id = ?")
		args = append(args, *f.MediaID)
	}
	if f.DueBy != nil {
		conditions = append(conditions, "action_at <= ?")
		args = append(args, *f.DueBy)
	}
	if f.DryRun != nil {
		conditions = append(conditions, "is_dry_run = ?")
		args = append(args, *f.DryRun)
	}

	query := `SELECT id, media_id, metadata_id, kind, title, rule_id, show_id, season, episode, ordinal, status, action_at, is_dry_run, error_detail, created_at, last_transition_at FROM queue_items`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		results = append(results, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}
	return results, nil
}

// Transition changes an item's status with validation. The update is guarded
// on the current status, so a concurrent transition of the same item loses
// cleanly with ErrInvalidTransition instead of overwriting.
func (s *Store) Transition(it *Item, to Status, errorDetail string) error {
	if !it.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, it.Status, to)
	}

	now := time.Now()
	result, err := s.db.Exec(`
		UPDATE queue_items SET status = ?, error_detail = ?, last_transition_at = ?
		WHERE id = ? AND status = ?`,
		to, errorDetail, now, it.ID, it.Status,
	)
	if err != nil {
		return fmt.Errorf("transition queue item %d: %w", it.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transition queue item %d (%s -> %s): %w", it.ID, it.Status, to, ErrInvalidTransition)
	}

	it.Status = to
	it.ErrorDetail = errorDetail
	it.LastTransitionAt = now
	return nil
}

// Extend pushes the item's eligibility time forward by the given number of
// days. Status is unchanged.
func (s *Store) Extend(it *Item, days int) error {
	newAt := it.ActionAt.AddDate(0, 0, days)
	result, err := s.db.Exec(`UPDATE queue_items SET action_at = ? WHERE id = ?`, newAt, it.ID)
	if err != nil {
		return fmt.Errorf("extend queue item %d: %w", it.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("extend queue item %d: %w", it.ID, ErrNotFound)
	}
	it.ActionAt = newAt
	return nil
}

// Prune deletes terminal items whose last transition is older than the
// cutoff. This is the only way queue rows are destroyed.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM queue_items
		WHERE status IN (?, ?) AND last_transition_at < ?`,
		StatusCompleted, StatusCancelled, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("prune queue items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	it := &Item{}
	var showID, season, episode, ordinal *int64
	if err := row.Scan(&it.ID, &it.MediaID, &it.MetadataID, &it.Kind, &it.Title, &it.RuleID,
		&showID, &season, &episode, &ordinal,
		&it.Status, &it.ActionAt, &it.IsDryRun, &it.ErrorDetail, &it.CreatedAt, &it.LastTransitionAt); err != nil {
		return nil, err
	}
	if showID != nil {
		it.Episode = &media.EpisodeRef{ShowID: *showID}
		if season != nil {
			it.Episode.Season = int(*season)
		}
		if episode != nil {
			it.Episode.Episode = int(*episode)
		}
		if ordinal != nil {
			it.Episode.Ordinal = int(*ordinal)
		}
	}
	return it, nil
}
