package usecases

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

const tollProfileKey = "toll_profile"

// SettingsService stores dashboard settings as base64-wrapped JSON. The
// extra base64 layer keeps commas and quotes out of the storage value, which
// some downstream config exporters treat as delimiters. Reads also accept
// bare JSON so records written before the wrapping was introduced keep
// loading.
type SettingsService struct {
	settings ports.SettingsRepository
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settings ports.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// SaveTollProfile persists the vehicle toll profile.
func (s *SettingsService) SaveTollProfile(ctx context.Context, profile *domain.TollProfile) error {
	return s.put(ctx, tollProfileKey, profile)
}

// TollProfile returns the stored toll profile, or nil if none is set.
func (s *SettingsService) TollProfile(ctx context.Context) (*domain.TollProfile, error) {
	var profile domain.TollProfile
	if err := s.get(ctx, tollProfileKey, &profile); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// DeleteTollProfile removes the stored toll profile.
func (s *SettingsService) DeleteTollProfile(ctx context.Context) error {
	return s.settings.Delete(ctx, tollProfileKey)
}

func (s *SettingsService) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := s.settings.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingsService) get(ctx context.Context, key string, v any) error {
	raw, err := s.settings.Get(ctx, key)
	if err != nil {
		return err
	}

	if decoded, derr := base64.StdEncoding.DecodeString(raw); derr == nil {
		if json.Unmarshal(decoded, v) == nil {
			return nil
		}
	}
	// Legacy records are bare JSON.
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}
