// Package accounts manages the OAuth service account used for recording storage.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/youtube/v3"

	"github.com/coursemeet/backend/internal/models"
)

// ErrInvalidCredentials is returned when a new account's refresh token is rejected.
var ErrInvalidCredentials = errors.New("refresh token rejected by provider")

// Store is the persistence the service needs.
type Store interface {
	InUse(ctx context.Context) (*models.ServiceAccount, error)
	Get(ctx context.Context, id int64) (*models.ServiceAccount, error)
	List(ctx context.Context) ([]models.ServiceAccount, error)
	Create(ctx context.Context, a *models.ServiceAccount) error
	SetInUse(ctx context.Context, id int64) error
	UpdateTokens(ctx context.Context, id int64, access, refresh string, created int64) error
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuthRefresher refreshes tokens against the Google OAuth endpoint.
type OAuthRefresher struct {
	conf *oauth2.Config
}

// NewOAuthRefresher creates a refresher for the given OAuth client.
func NewOAuthRefresher(clientID, clientSecret string) *OAuthRefresher {
	return &OAuthRefresher{conf: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Google,
		Scopes:       []string{youtube.YoutubeScope},
	}}
}

// Refresh implements Refresher.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	return tok, nil
}

// Service hands out a fresh service account.
type Service struct {
	store     Store
	refresher Refresher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a service account service.
func NewService(store Store, refresher Refresher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, refresher: refresher, logger: logger, now: time.Now}
}

// InUse returns the account in use or ErrNoAccount.
func (s *Service) InUse(ctx context.Context) (*models.ServiceAccount, error) {
	return s.store.InUse(ctx)
}

// List returns every stored account.
func (s *Service) List(ctx context.Context) ([]models.ServiceAccount, error) {
	return s.store.List(ctx)
}

// Create stores a new account after exchanging its refresh token once, so an
// account is only saved with credentials the provider accepts. With inUse the
// account replaces the one recordings currently use.
func (s *Service) Create(ctx context.Context, name, refreshToken string, inUse bool) (*models.ServiceAccount, error) {
	tok, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("service account refresh token rejected", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	acc := &models.ServiceAccount{
		Name:               name,
		ClientAccessToken:  tok.AccessToken,
		ClientRefreshToken: refreshToken,
		TokenCreated:       s.now().Unix(),
	}
	if tok.RefreshToken != "" {
		acc.ClientRefreshToken = tok.RefreshToken
	}
	if err := s.store.Create(ctx, acc); err != nil {
		return nil, err
	}
	s.logger.Info("service account created", zap.Int64("account_id", acc.ID), zap.String("name", name))
	if !inUse {
		return acc, nil
	}
	return s.SetInUse(ctx, acc.ID)
}

// SetInUse makes id the account recordings are stored under.
func (s *Service) SetInUse(ctx context.Context, id int64) (*models.ServiceAccount, error) {
	if err := s.store.SetInUse(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("service account in use", zap.Int64("account_id", id))
	return s.store.Get(ctx, id)
}

// HasInUse reports whether an account is configured for recordings.
func (s *Service) HasInUse(ctx context.Context) (bool, error) {
	_, err := s.store.InUse(ctx)
	if errors.Is(err, ErrNoAccount) {
		return false, nil
	}
	return err == nil, err
}

// Fresh returns the account in use with an access token that is not stale,
// refreshing and persisting it first when needed. Concurrent callers may both
// refresh; the last write wins.
func (s *Service) Fresh(ctx context.Context) (*models.ServiceAccount, error) {
	acc, err := s.store.InUse(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !acc.IsStale(now) {
		return acc, nil
	}

	tok, err := s.refresher.Refresh(ctx, acc.ClientRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("service account %d: %w", acc.ID, err)
	}
	acc.ClientAccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		acc.ClientRefreshToken = tok.RefreshToken
	}
	acc.TokenCreated = now.Unix()
	if err := s.store.UpdateTokens(ctx, acc.ID, acc.ClientAccessToken, acc.ClientRefreshToken, acc.TokenCreated); err != nil {
		return nil, err
	}
	s.logger.Info("service account token refreshed", zap.Int64("account_id", acc.ID))
	return acc, nil
}

// TokenSource returns a token source for the fresh access token of the account in use.
func (s *Service) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	acc, err := s.Fresh(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: acc.ClientAccessToken,
		TokenType:   "Bearer",
		Expiry:      time.Unix(acc.TokenCreated, 0).Add(models.AccessTokenLifetime),
	}), nil
}
