// Package persistence provides the record-store abstraction for provider and
// service bundles.
package persistence

import (
	"context"

	"github.com/opencatalog/registrar/pkg/models"
)

// ProviderFilter narrows a provider listing. Zero values match everything;
// listings are unpaged by design, catalog scale bounds the result set.
type ProviderFilter struct {
	State  models.WorkflowState
	Active *bool
}

// ServiceFilter narrows a service listing.
type ServiceFilter struct {
	MainProvider string
	Template     *bool
}

// ProviderRepository stores provider bundles keyed by provider id.
//
// Save is an optimistic put: the bundle's Revision must match the stored
// revision (zero for a new record) or Save fails with ErrRevisionConflict.
// On success the stored revision is incremented and written back to the
// bundle.
type ProviderRepository interface {
	GetByID(ctx context.Context, id string) (*models.ProviderBundle, error)
	Save(ctx context.Context, bundle *models.ProviderBundle) error
	List(ctx context.Context, filter ProviderFilter) ([]*models.ProviderBundle, error)
	Delete(ctx context.Context, id string) error
}

// ServiceRepository stores service bundles keyed by service id, with the
// same optimistic Save semantics as ProviderRepository.
type ServiceRepository interface {
	GetByID(ctx context.Context, id string) (*models.ServiceBundle, error)
	Save(ctx context.Context, bundle *models.ServiceBundle) error
	List(ctx context.Context, filter ServiceFilter) ([]*models.ServiceBundle, error)
	Delete(ctx context.Context, id string) error
}

type Persistence interface {
	ProviderRepository() ProviderRepository
	ServiceRepository() ServiceRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
