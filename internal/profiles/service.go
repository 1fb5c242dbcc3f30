// Package profiles is the provider-independent user profile service.
package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/models"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// PhotoBucket receives uploaded profile photos.
const PhotoBucket = "profile-photos"

// ProviderSource resolves the active provider. The selection facade
// satisfies this.
type ProviderSource interface {
	Get(ctx context.Context) (provider.Provider, error)
}

type Service struct {
	providers ProviderSource
	log       logging.Logger
}

func NewService(providers ProviderSource, log logging.Logger) *Service {
	return &Service{providers: providers, log: log}
}

// Get loads the user's profile.
func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}

	user, err := p.Data().GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
	}
	return user, nil
}

// Update applies a partial profile update and returns the fresh record.
func (s *Service) Update(ctx context.Context, userID string, upd *models.UserUpdate) (*models.User, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Data().UpdateUser(ctx, userID, upd)
}

// UploadPhoto stores a profile photo and points the profile at its URL.
func (s *Service) UploadPhoto(ctx context.Context, userID string, photo []byte, contentType string) (string, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s/photo-%d", userID, time.Now().UnixMilli())
	url, err := p.Storage().Upload(ctx, PhotoBucket, path, photo, &provider.UploadOptions{
		ContentType: contentType,
		Upsert:      true,
	})
	if err != nil {
		return "", err
	}

	if _, err := p.Data().UpdateUser(ctx, userID, &models.UserUpdate{ProfilePicture: &url}); err != nil {
		return "", err
	}

	s.log.Info(ctx, "profile photo updated", "userId", userID)
	return url, nil
}
