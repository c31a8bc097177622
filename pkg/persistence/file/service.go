package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
)

// ServiceRepository stores service bundles as one JSON file per service.
type ServiceRepository struct {
	root string
	mu   *sync.Mutex
}

func NewServiceRepository(root string, mu *sync.Mutex) *ServiceRepository {
	return &ServiceRepository{root: root, mu: mu}
}

func (sr *ServiceRepository) GetByID(_ context.Context, id string) (*models.ServiceBundle, error) {
	filePath := filepath.Clean(path.Join(sr.root, "services", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewBundleError("GetByID", id, persistence.ErrServiceNotFound)
		}

		return nil, fmt.Errorf("failed to read service %s: %w", id, err)
	}

	var bundle models.ServiceBundle

	err = json.Unmarshal(body, &bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal service %s: %w", id, err)
	}

	return &bundle, nil
}

// Save follows the same optimistic revision rules as the provider
// repository. Template uniqueness is not enforced here; callers that need a
// hard guarantee use the postgres store.
func (sr *ServiceRepository) Save(ctx context.Context, bundle *models.ServiceBundle) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	id := bundle.GetID()

	current, err := sr.GetByID(ctx, id)
	if err != nil && !persistence.IsNotFound(err) {
		return err
	}

	if current == nil && bundle.Revision != 0 {
		return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
	}

	if current != nil && current.Revision != bundle.Revision {
		return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
	}

	bundle.Revision++

	if err := os.MkdirAll(path.Join(sr.root, "services"), 0750); err != nil {
		return fmt.Errorf("failed to create services directory: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to marshal service %s: %w", id, err)
	}

	return os.WriteFile(path.Join(sr.root, "services", id+".json"), data, 0600)
}

func (sr *ServiceRepository) List(ctx context.Context, filter persistence.ServiceFilter) ([]*models.ServiceBundle, error) {
	ids, err := listIDs(path.Join(sr.root, "services"))
	if err != nil {
		return nil, err
	}

	bundles := make([]*models.ServiceBundle, 0, len(ids))

	for _, id := range ids {
		bundle, err := sr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		if filter.MainProvider != "" && bundle.Payload.MainProvider != filter.MainProvider {
			continue
		}

		if filter.Template != nil && bundle.Template != *filter.Template {
			continue
		}

		bundles = append(bundles, bundle)
	}

	return bundles, nil
}

func (sr *ServiceRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(sr.root, "services", id+".json"))
	if err != nil && os.IsNotExist(err) {
		return persistence.NewBundleError("Delete", id, persistence.ErrServiceNotFound)
	}

	return err
}
