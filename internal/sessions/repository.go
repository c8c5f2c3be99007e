package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/database"
)

// ErrNotFound is returned when no session matches.
var ErrNotFound = errors.New("session not found")

const sessionColumns = `id, course_id, name, COALESCE(intro,''), intro_format, time_open, time_close,
	validity_time, token, link_expired, time_created, time_modified, created_at`

// Repository handles session persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a session repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.CourseID, &s.Name, &s.Intro, &s.IntroFormat, &s.TimeOpen, &s.TimeClose,
		&s.ValidityTime, &s.Token, &s.LinkExpired, &s.TimeCreated, &s.TimeModified, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session, including its token.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (course_id, name, intro, intro_format, time_open, time_close,
			validity_time, token, link_expired, time_created, time_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, s.CourseID, s.Name, s.Intro, s.IntroFormat, s.TimeOpen, s.TimeClose,
		s.ValidityTime, s.Token, s.LinkExpired, s.TimeCreated, s.TimeModified).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update writes the editable fields of s. The token column is never touched.
// It reports whether a row was updated.
func (r *Repository) Update(ctx context.Context, s *models.Session) (bool, error) {
	const q = `UPDATE sessions SET name = $2, intro = $3, intro_format = $4, time_open = $5,
			time_close = $6, validity_time = $7, link_expired = $8, time_modified = $9
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, s.ID, s.Name, s.Intro, s.IntroFormat, s.TimeOpen, s.TimeClose,
		s.ValidityTime, s.LinkExpired, s.TimeModified)
	if err != nil {
		return false, fmt.Errorf("update session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a session and its recordings in one transaction. It reports
// false when the session does not exist and returns the recording sources that
// no longer have any recording.
func (r *Repository) Delete(ctx context.Context, id int64) ([]models.RecordingSource, bool, error) {
	var (
		deleted bool
		orphans []models.RecordingSource
	)
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM recordings WHERE session_id = $1 RETURNING source_id`, id)
		if err != nil {
			return fmt.Errorf("delete recordings: %w", err)
		}
		sourceIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("delete recordings: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		deleted = tag.RowsAffected() > 0
		if len(sourceIDs) == 0 {
			return nil
		}
		rows, err = tx.Query(ctx, `
			SELECT s.id, s.link, s.provider FROM recording_sources s
			WHERE s.id = ANY($1)
			  AND NOT EXISTS (SELECT 1 FROM recordings r WHERE r.source_id = s.id)`, sourceIDs)
		if err != nil {
			return fmt.Errorf("find orphaned sources: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var src models.RecordingSource
			if err := rows.Scan(&src.ID, &src.Link, &src.Provider); err != nil {
				return fmt.Errorf("scan source: %w", err)
			}
			orphans = append(orphans, src)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, false, err
	}
	return orphans, deleted, nil
}

// Get returns a session by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Session, error) {
	return scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

// GetByToken returns the session a guest link points to.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token))
}

// ListByCourse returns the sessions of a course, oldest first.
func (r *Repository) ListByCourse(ctx context.Context, courseID int64) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
