package service

import (
	"context"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// NearestAuthorities ranks the emergency contacts around from
func (s *Service) NearestAuthorities(from models.Coordinate, radiusKm float64, category models.Category) ([]models.NearbyAuthority, error) {
	if s.resolver == nil {
		return []models.NearbyAuthority{}, nil
	}
	return s.resolver.Nearest(from, radiusKm, category)
}

// ReloadAuthorities refreshes the authority directory from its loaders
func (s *Service) ReloadAuthorities(ctx context.Context) error {
	if s.directory == nil {
		return apperr.Validation("authority directory has no loaders")
	}
	return s.directory.Refresh(ctx)
}
