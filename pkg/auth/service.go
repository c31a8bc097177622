package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
)

var ErrNoMainProvider = errors.New("service has no main provider")

// Service resolves ownership questions against the persisted catalog.
type Service struct {
	persistence persistence.Persistence
}

func NewService(p persistence.Persistence) *Service {
	return &Service{persistence: p}
}

// IsProviderAdmin reports whether the principal is listed among the
// provider's users. A listed user with both an id and an email matches on
// either; a user with only one of the two matches on that one alone.
func (s *Service) IsProviderAdmin(ctx context.Context, principal Principal, providerID string) (bool, error) {
	bundle, err := s.persistence.ProviderRepository().GetByID(ctx, providerID)
	if err != nil {
		return false, fmt.Errorf("loading provider %s: %w", providerID, err)
	}

	for _, user := range bundle.Payload.Users {
		if matchesUser(principal, user) {
			return true, nil
		}
	}

	return false, nil
}

// IsServiceOwner reports whether the principal administers the service's
// main provider.
func (s *Service) IsServiceOwner(ctx context.Context, principal Principal, serviceID string) (bool, error) {
	bundle, err := s.persistence.ServiceRepository().GetByID(ctx, serviceID)
	if err != nil {
		return false, fmt.Errorf("loading service %s: %w", serviceID, err)
	}

	if bundle.Payload.MainProvider == "" {
		return false, ErrNoMainProvider
	}

	return s.IsProviderAdmin(ctx, principal, bundle.Payload.MainProvider)
}

func matchesUser(principal Principal, user models.User) bool {
	if user.ID != "" && principal.ID != "" && user.ID == principal.ID {
		return true
	}

	if user.ID != "" && user.Email == "" {
		return false
	}

	return user.Email != "" && principal.Email != "" && user.Email == principal.Email
}
