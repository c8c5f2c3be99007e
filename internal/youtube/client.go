// Package youtube deletes recording videos hosted on YouTube.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// TokenSourcer supplies a token for the service account in use.
type TokenSourcer interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// AssetStore deletes videos through the YouTube Data API.
type AssetStore struct {
	tokens TokenSourcer
	opts   []option.ClientOption
	logger *zap.Logger
}

// NewAssetStore creates a YouTube asset store. Extra client options are
// appended after the token source, e.g. option.WithEndpoint in tests.
func NewAssetStore(tokens TokenSourcer, logger *zap.Logger, opts ...option.ClientOption) *AssetStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetStore{tokens: tokens, opts: opts, logger: logger}
}

// DeleteAsset deletes the video with the given id. A video that no longer
// exists counts as deleted.
func (s *AssetStore) DeleteAsset(ctx context.Context, videoID string) error {
	ts, err := s.tokens.TokenSource(ctx)
	if err != nil {
		return fmt.Errorf("youtube token: %w", err)
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, s.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("youtube client: %w", err)
	}

	if err := svc.Videos.Delete(videoID).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			s.logger.Info("youtube video already gone", zap.String("video_id", videoID))
			return nil
		}
		return fmt.Errorf("delete youtube video %s: %w", videoID, err)
	}
	s.logger.Info("youtube video deleted", zap.String("video_id", videoID))
	return nil
}
