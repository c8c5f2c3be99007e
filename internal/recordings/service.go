// Package recordings tracks session recordings and removes their hosted assets.
package recordings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/queue"
	"github.com/coursemeet/backend/pkg/sanitize"
)

var (
	// ErrInvalidMode is returned for a deletion mode other than 1 or 2.
	ErrInvalidMode = errors.New("invalid deletion mode")
	// ErrNotDeletable is returned when a source still has active recordings.
	ErrNotDeletable = errors.New("recording source still has active recordings")
	// ErrInvalidName is returned when a name is empty after cleaning.
	ErrInvalidName = errors.New("invalid recording name")
	// ErrUnknownProvider is returned when no asset store serves a provider.
	ErrUnknownProvider = errors.New("unknown recording provider")
)

// Store is the persistence the service needs.
type Store interface {
	SourceByLink(ctx context.Context, provider, link string) (*models.RecordingSource, error)
	Create(ctx context.Context, src *models.RecordingSource, rec *models.Recording) error
	Get(ctx context.Context, id int64) (*models.Recording, error)
	GetSource(ctx context.Context, id int64) (*models.RecordingSource, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.Recording, error)
	Rename(ctx context.Context, id int64, name string) (bool, error)
	SetDeleted(ctx context.Context, id int64, state int) (bool, error)
	CountActiveBySource(ctx context.Context, sourceID int64) (int, error)
	DeleteSource(ctx context.Context, sourceID int64) error
}

// AssetStore removes an externally hosted recording asset. Deleting an asset
// that is already gone must succeed.
type AssetStore interface {
	DeleteAsset(ctx context.Context, link string) error
}

// Enqueuer hands asset deletion to the background worker.
type Enqueuer interface {
	EnqueueAssetDelete(ctx context.Context, payload queue.AssetDeletePayload) error
}

// Accounts looks up the service account recordings are stored under.
type Accounts interface {
	InUse(ctx context.Context) (*models.ServiceAccount, error)
}

// Service implements the recording lifecycle.
type Service struct {
	store    Store
	assets   map[string]AssetStore
	enqueuer Enqueuer
	accounts Accounts
	logger   *zap.Logger
}

// NewService creates a recordings service. assets maps a provider name to the
// store that deletes its assets.
func NewService(store Store, assets map[string]AssetStore, enqueuer Enqueuer, accounts Accounts, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, assets: assets, enqueuer: enqueuer, accounts: accounts, logger: logger}
}

// Start records that capture of a session began. A link that is already
// stored for the provider reuses its source, so every recording of one hosted
// asset is counted before that asset is purged.
func (s *Service) Start(ctx context.Context, sessionID int64, provider, link, name string) (*models.Recording, error) {
	if _, ok := s.assets[provider]; !ok {
		return nil, ErrUnknownProvider
	}
	src, err := s.store.SourceByLink(ctx, provider, link)
	switch {
	case errors.Is(err, ErrSourceNotFound):
		src = &models.RecordingSource{Link: link, Provider: provider}
		if s.accounts != nil {
			if acc, err := s.accounts.InUse(ctx); err == nil {
				src.AccountID = &acc.ID
			}
		}
	case err != nil:
		return nil, fmt.Errorf("find recording source: %w", err)
	}
	rec := &models.Recording{
		SessionID: sessionID,
		Name:      sanitize.StripTags(name),
		Link:      link,
		Deleted:   models.RecordingActive,
	}
	if err := s.store.Create(ctx, src, rec); err != nil {
		return nil, err
	}
	s.logger.Info("recording started",
		zap.Int64("session_id", sessionID),
		zap.Int64("recording_id", rec.ID),
		zap.Int64("source_id", rec.SourceID),
		zap.String("provider", provider))
	return rec, nil
}

// Get returns a recording by ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Recording, error) {
	return s.store.Get(ctx, id)
}

// Source returns a recording source by ID.
func (s *Service) Source(ctx context.Context, id int64) (*models.RecordingSource, error) {
	return s.store.GetSource(ctx, id)
}

// ListBySession returns the recordings of a session.
func (s *Service) ListBySession(ctx context.Context, sessionID int64) ([]models.Recording, error) {
	return s.store.ListBySession(ctx, sessionID)
}

// Rename sets a recording's name with markup removed.
func (s *Service) Rename(ctx context.Context, id int64, name string) (string, error) {
	clean := sanitize.StripTags(name)
	if clean == "" {
		return "", ErrInvalidName
	}
	ok, err := s.store.Rename(ctx, id, clean)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return clean, nil
}

// MarkForDeletion soft deletes a recording. Mode 1 marks it, mode 2 confirms it.
func (s *Service) MarkForDeletion(ctx context.Context, id int64, mode int) error {
	if mode != models.RecordingMarked && mode != models.RecordingConfirmed {
		return ErrInvalidMode
	}
	ok, err := s.store.SetDeleted(ctx, id, mode)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// IsDeletable reports whether no active recording references the source.
func (s *Service) IsDeletable(ctx context.Context, sourceID int64) (bool, error) {
	n, err := s.store.CountActiveBySource(ctx, sourceID)
	if err != nil {
		return false, fmt.Errorf("count active recordings: %w", err)
	}
	return n == 0, nil
}

// Purge queues removal of a deletable source. The worker deletes the hosted
// asset first and the local rows only after that succeeded.
func (s *Service) Purge(ctx context.Context, sourceID int64) error {
	src, err := s.store.GetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	ok, err := s.IsDeletable(ctx, sourceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotDeletable
	}
	if err := s.enqueuer.EnqueueAssetDelete(ctx, queue.AssetDeletePayload{
		SourceID: src.ID,
		Link:     src.Link,
		Provider: src.Provider,
	}); err != nil {
		return fmt.Errorf("enqueue asset delete: %w", err)
	}
	s.logger.Info("recording purge queued", zap.Int64("source_id", sourceID))
	return nil
}

// PurgeNow deletes the hosted asset and then the local rows of a source. A
// source that is already gone counts as purged, so a retried job is harmless.
func (s *Service) PurgeNow(ctx context.Context, sourceID int64) error {
	src, err := s.store.GetSource(ctx, sourceID)
	if errors.Is(err, ErrSourceNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	ok, err := s.IsDeletable(ctx, sourceID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotDeletable
	}
	assets, found := s.assets[src.Provider]
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, src.Provider)
	}
	if err := assets.DeleteAsset(ctx, src.Link); err != nil {
		return fmt.Errorf("delete asset %s: %w", src.Link, err)
	}
	if err := s.store.DeleteSource(ctx, sourceID); err != nil {
		return fmt.Errorf("delete source %d: %w", sourceID, err)
	}
	s.logger.Info("recording source purged", zap.Int64("source_id", sourceID), zap.String("provider", src.Provider))
	return nil
}
