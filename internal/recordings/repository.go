package recordings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/database"
)

var (
	// ErrNotFound is returned when no recording matches.
	ErrNotFound = errors.New("recording not found")
	// ErrSourceNotFound is returned when no recording source matches.
	ErrSourceNotFound = errors.New("recording source not found")
)

const recordingColumns = `id, session_id, source_id, name, COALESCE(link,''), deleted, created_at`

// Repository handles recording and recording source persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a recordings repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var r models.Recording
	if err := row.Scan(&r.ID, &r.SessionID, &r.SourceID, &r.Name, &r.Link, &r.Deleted, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// SourceByLink returns the source of a provider asset.
func (r *Repository) SourceByLink(ctx context.Context, provider, link string) (*models.RecordingSource, error) {
	const q = `SELECT id, link, provider, account_id, time_created FROM recording_sources WHERE provider = $1 AND link = $2`
	return scanSource(r.db.QueryRow(ctx, q, provider, link))
}

// Create inserts a recording pointing at src. A src without an ID is inserted
// first; when another request stored the same asset meanwhile, that row is used.
func (r *Repository) Create(ctx context.Context, src *models.RecordingSource, rec *models.Recording) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if src.ID == 0 {
			const qs = `INSERT INTO recording_sources (link, provider, account_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (provider, link) DO UPDATE SET link = EXCLUDED.link
				RETURNING id, time_created`
			if err := tx.QueryRow(ctx, qs, src.Link, src.Provider, src.AccountID).Scan(&src.ID, &src.TimeCreated); err != nil {
				return fmt.Errorf("insert recording source: %w", err)
			}
		}
		rec.SourceID = src.ID
		const qr = `INSERT INTO recordings (session_id, source_id, name, link, deleted)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`
		if err := tx.QueryRow(ctx, qr, rec.SessionID, rec.SourceID, rec.Name, rec.Link, rec.Deleted).Scan(&rec.ID, &rec.CreatedAt); err != nil {
			return fmt.Errorf("insert recording: %w", err)
		}
		return nil
	})
}

// Get returns a recording by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*models.Recording, error) {
	return scanRecording(r.db.QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id))
}

func scanSource(row pgx.Row) (*models.RecordingSource, error) {
	var s models.RecordingSource
	if err := row.Scan(&s.ID, &s.Link, &s.Provider, &s.AccountID, &s.TimeCreated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetSource returns a recording source by ID.
func (r *Repository) GetSource(ctx context.Context, id int64) (*models.RecordingSource, error) {
	const q = `SELECT id, link, provider, account_id, time_created FROM recording_sources WHERE id = $1`
	return scanSource(r.db.QueryRow(ctx, q, id))
}

// ListBySession returns the recordings of a session, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID int64) ([]models.Recording, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE session_id = $1 ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// Rename sets the display name of a recording.
func (r *Repository) Rename(ctx context.Context, id int64, name string) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE recordings SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return false, fmt.Errorf("rename recording: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetDeleted sets the deletion state of a recording.
func (r *Repository) SetDeleted(ctx context.Context, id int64, state int) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE recordings SET deleted = $2 WHERE id = $1`, id, state)
	if err != nil {
		return false, fmt.Errorf("mark recording: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountActiveBySource counts recordings of a source that are not marked for deletion.
func (r *Repository) CountActiveBySource(ctx context.Context, sourceID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM recordings WHERE source_id = $1 AND deleted = $2`,
		sourceID, models.RecordingActive).Scan(&n)
	return n, err
}

// DeleteSource removes a source and every recording pointing at it. The
// source row is locked and re-checked, so a recording started meanwhile makes
// the call fail with ErrNotDeletable instead of being removed.
func (r *Repository) DeleteSource(ctx context.Context, sourceID int64) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM recording_sources WHERE id = $1 FOR UPDATE`, sourceID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock recording source: %w", err)
		}
		var active int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM recordings WHERE source_id = $1 AND deleted = $2`,
			sourceID, models.RecordingActive).Scan(&active); err != nil {
			return fmt.Errorf("count active recordings: %w", err)
		}
		if active > 0 {
			return ErrNotDeletable
		}
		if _, err := tx.Exec(ctx, `DELETE FROM recordings WHERE source_id = $1`, sourceID); err != nil {
			return fmt.Errorf("delete recordings: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM recording_sources WHERE id = $1`, sourceID); err != nil {
			return fmt.Errorf("delete recording source: %w", err)
		}
		return nil
	})
}
