package protection

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// Store persists watch events, velocity samples, protection snapshots and
// redownload tasks.
type Store struct {
	db *sql.DB
}

// NewStore creates a protection store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AddWatchEvents appends watch events. Duplicate (viewer, show, ordinal)
// events are ignored, so re-syncing history from the media server is safe.
func (s *Store) AddWatchEvents(events []media.WatchEvent) error {
	for _, e := range events {
		_, err := s.db.Exec(`
			INSERT OR IGNORE INTO watch_events (viewer_id, show_id, season, episode, ordinal, watched_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			e.ViewerID, e.ShowID, e.Season, e.Episode, e.Ordinal, e.WatchedAt,
		)
		if err != nil {
			return fmt.Errorf("insert watch event: %w", err)
		}
	}
	return nil
}

// RecentEvents returns the newest watch events for one viewer and show,
// newest first, up to limit. Season 0 is excluded unless includeSpecials.
func (s *Store) RecentEvents(viewerID string, showID int64, limit int, includeSpecials bool) ([]media.WatchEvent, error) {
	query := `
		SELECT id, viewer_id, show_id, season, episode, ordinal, watched_at
		FROM watch_events
		WHERE viewer_id = ? AND show_id = ?`
	args := []any{viewerID, showID}
	if !includeSpecials {
		query += " AND season != 0"
	}
	query += " ORDER BY watched_at DESC, ordinal DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []media.WatchEvent
	for rows.Next() {
		var e media.WatchEvent
		if err := rows.Scan(&e.ID, &e.ViewerID, &e.ShowID, &e.Season, &e.Episode, &e.Ordinal, &e.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan watch event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ActiveViewers returns viewers with a watch event on the show since the
// cutoff.
func (s *Store) ActiveViewers(showID int64, since time.Time) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT viewer_id FROM watch_events
		WHERE show_id = ? AND watched_at >= ?
		ORDER BY viewer_id`,
		showID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("active viewers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var viewers []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan viewer: %w", err)
		}
		viewers = append(viewers, v)
	}
	return viewers, rows.Err()
}

// ActiveShows returns shows with any watch event since the cutoff.
func (s *Store) ActiveShows(since time.Time) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT show_id FROM watch_events
		WHERE watched_at >= ?
		ORDER BY show_id`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("active shows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var shows []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan show: %w", err)
		}
		shows = append(shows, id)
	}
	return shows, rows.Err()
}

// Position returns the viewer's highest watched ordinal on the show and the
// event that set it. Returns ErrNoHistory when the viewer has none.
func (s *Store) Position(viewerID string, showID int64, includeSpecials bool) (*media.WatchEvent, error) {
	query := `
		SELECT id, viewer_id, show_id, season, episode, ordinal, watched_at
		FROM watch_events
		WHERE viewer_id = ? AND show_id = ?`
	if !includeSpecials {
		query += " AND season != 0"
	}
	query += " ORDER BY ordinal DESC LIMIT 1"

	var e media.WatchEvent
	err := s.db.QueryRow(query, viewerID, showID).
		Scan(&e.ID, &e.ViewerID, &e.ShowID, &e.Season, &e.Episode, &e.Ordinal, &e.WatchedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("position of %s on show %d: %w", viewerID, showID, ErrNoHistory)
	}
	if err != nil {
		return nil, fmt.Errorf("position of %s on show %d: %w", viewerID, showID, err)
	}
	return &e, nil
}

// WatchedAt returns, per viewer, when the given ordinal (or the next one
// above it, for skipped episodes) was watched on the show.
func (s *Store) WatchedAt(showID int64, ordinal int) (map[string]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT viewer_id, MIN(watched_at) FROM watch_events
		WHERE show_id = ? AND ordinal >= ?
		GROUP BY viewer_id`,
		showID, ordinal,
	)
	if err != nil {
		return nil, fmt.Errorf("watched at: %w", err)
	}
	defer func() { _ = rows.Close() }()

	times := make(map[string]time.Time)
	for rows.Next() {
		var viewer string
		// MIN() strips the column's declared type, so the driver returns the
		// stored text instead of a time.Time; parse it the way the driver would.
		var raw string
		if err := rows.Scan(&viewer, &raw); err != nil {
			return nil, fmt.Errorf("scan watched at: %w", err)
		}
		if i := strings.Index(raw, " m="); i >= 0 {
			raw = raw[:i]
		}
		at, err := time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", raw)
		if err != nil {
			return nil, fmt.Errorf("scan watched at: %w", err)
		}
		times[viewer] = at
	}
	return times, rows.Err()
}

// UpsertSample stores one viewer's velocity sample for a show.
func (s *Store) UpsertSample(v *VelocitySample) error {
	_, err := s.db.Exec(`
		INSERT INTO velocity_samples (viewer_id, show_id, season, episode, ordinal, episodes_per_day, sample_count, fallback, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(viewer_id, show_id) DO UPDATE SET
			season = excluded.season,
			episode = excluded.episode,
			ordinal = excluded.ordinal,
			episodes_per_day = excluded.episodes_per_day,
			sample_count = excluded.sample_count,
			fallback = excluded.fallback,
			updated_at = excluded.updated_at`,
		v.ViewerID, v.ShowID, v.Season, v.Episode, v.Ordinal, v.EpisodesPerDay, v.SampleCount, v.Fallback, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert velocity sample: %w", err)
	}
	return nil
}

// Samples returns all stored velocity samples.
func (s *Store) Samples() ([]*VelocitySample, error) {
	rows, err := s.db.Query(`
		SELECT viewer_id, show_id, season, episode, ordinal, episodes_per_day, sample_count, fallback, updated_at
		FROM velocity_samples ORDER BY show_id, viewer_id`)
	if err != nil {
		return nil, fmt.Errorf("list velocity samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var samples []*VelocitySample
	for rows.Next() {
		v := &VelocitySample{}
		if err := rows.Scan(&v.ViewerID, &v.ShowID, &v.Season, &v.Episode, &v.Ordinal,
			&v.EpisodesPerDay, &v.SampleCount, &v.Fallback, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan velocity sample: %w", err)
		}
		samples = append(samples, v)
	}
	return samples, rows.Err()
}

// SaveProtection replaces the stored snapshot for a show.
func (s *Store) SaveProtection(p *ShowProtection) error {
	detail, err := json.Marshal(p.Viewers)
	if err != nil {
		return fmt.Errorf("marshal protection detail: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO protection_windows (show_id, floor, eligible_through, detail, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(show_id) DO UPDATE SET
			floor = excluded.floor,
			eligible_through = excluded.eligible_through,
			detail = excluded.detail,
			computed_at = excluded.computed_at`,
		p.ShowID, p.Floor, p.EligibleThrough, string(detail), p.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("save protection for show %d: %w", p.ShowID, err)
	}
	return nil
}

// Protection returns the stored snapshot for a show, or nil if the show has
// no active protection.
func (s *Store) Protection(showID int64) (*ShowProtection, error) {
	p := &ShowProtection{}
	var detail string
	err := s.db.QueryRow(`
		SELECT show_id, floor, eligible_through, detail, computed_at
		FROM protection_windows WHERE show_id = ?`, showID).
		Scan(&p.ShowID, &p.Floor, &p.EligibleThrough, &detail, &p.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("protection for show %d: %w", showID, err)
	}
	if err := json.Unmarshal([]byte(detail), &p.Viewers); err != nil {
		return nil, fmt.Errorf("unmarshal protection detail: %w", err)
	}
	return p, nil
}

// Protections returns all stored snapshots.
func (s *Store) Protections() ([]*ShowProtection, error) {
	rows, err := s.db.Query(`
		SELECT show_id, floor, eligible_through, detail, computed_at
		FROM protection_windows ORDER BY show_id`)
	if err != nil {
		return nil, fmt.Errorf("list protections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*ShowProtection
	for rows.Next() {
		p := &ShowProtection{}
		var detail string
		if err := rows.Scan(&p.ShowID, &p.Floor, &p.EligibleThrough, &detail, &p.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan protection: %w", err)
		}
		if err := json.Unmarshal([]byte(detail), &p.Viewers); err != nil {
			return nil, fmt.Errorf("unmarshal protection detail: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// DeleteProtection removes a show's snapshot (no active viewers remain).
func (s *Store) DeleteProtection(showID int64) error {
	if _, err := s.db.Exec(`DELETE FROM protection_windows WHERE show_id = ?`, showID); err != nil {
		return fmt.Errorf("delete protection for show %d: %w", showID, err)
	}
	return nil
}

// AddTask inserts a redownload task unless an open one already exists for
// the episode. Returns the open task either way.
func (s *Store) AddTask(t *RedownloadTask) error {
	existing, err := s.openTask(t.ShowID, t.Ordinal)
	if err != nil {
		return err
	}
	if existing != nil {
		*t = *existing
		return nil
	}

	now := time.Now()
	result, err := s.db.Exec(`
		INSERT INTO redownload_tasks (show_id, season, episode, ordinal, viewer_id, due_by, urgency, status, detail, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ShowID, t.Season, t.Episode, t.Ordinal, t.ViewerID, t.DueBy, t.Urgency, t.Status, t.Detail, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert redownload task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (s *Store) openTask(showID int64, ordinal int) (*RedownloadTask, error) {
	t := &RedownloadTask{}
	err := s.db.QueryRow(`
		SELECT id, show_id, season, episode, ordinal, viewer_id, due_by, urgency, status, detail, created_at, updated_at
		FROM redownload_tasks
		WHERE show_id = ? AND ordinal = ? AND status IN (?, ?)`,
		showID, ordinal, TaskPending, TaskRequested).
		Scan(&t.ID, &t.ShowID, &t.Season, &t.Episode, &t.Ordinal, &t.ViewerID,
			&t.DueBy, &t.Urgency, &t.Status, &t.Detail, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus records the task's outcome.
func (s *Store) UpdateTaskStatus(id int64, status TaskStatus, detail string) error {
	result, err := s.db.Exec(`
		UPDATE redownload_tasks SET status = ?, detail = ?, updated_at = ? WHERE id = ?`,
		status, detail, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Tasks returns redownload tasks, newest first, up to limit (0 = all).
func (s *Store) Tasks(limit int) ([]*RedownloadTask, error) {
	query := `
		SELECT id, show_id, season, episode, ordinal, viewer_id, due_by, urgency, status, detail, created_at, updated_at
		FROM redownload_tasks ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list redownload tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*RedownloadTask
	for rows.Next() {
		t := &RedownloadTask{}
		if err := rows.Scan(&t.ID, &t.ShowID, &t.Season, &t.Episode, &t.Ordinal, &t.ViewerID,
			&t.DueBy, &t.Urgency, &t.Status, &t.Detail, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan redownload task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
