package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
)

// ProviderRepository stores provider bundles as one JSON file per provider.
type ProviderRepository struct {
	root string
	mu   *sync.Mutex // guards read-compare-write during Save
}

func NewProviderRepository(root string, mu *sync.Mutex) *ProviderRepository {
	return &ProviderRepository{root: root, mu: mu}
}

func (pr *ProviderRepository) GetByID(_ context.Context, id string) (*models.ProviderBundle, error) {
	filePath := filepath.Clean(path.Join(pr.root, "providers", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewBundleError("GetByID", id, persistence.ErrProviderNotFound)
		}

		return nil, fmt.Errorf("failed to read provider %s: %w", id, err)
	}

	var bundle models.ProviderBundle

	err = json.Unmarshal(body, &bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider %s: %w", id, err)
	}

	return &bundle, nil
}

// Save writes the bundle if its revision matches what is on disk. The
// revision check and the write happen under the store mutex, which gives
// per-process atomicity; cross-process writers race (known limitation of the
// file backend, use the postgres or redis store when that matters).
func (pr *ProviderRepository) Save(ctx context.Context, bundle *models.ProviderBundle) error {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	id := bundle.GetID()

	current, err := pr.GetByID(ctx, id)
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

	if err := os.MkdirAll(path.Join(pr.root, "providers"), 0750); err != nil {
		return fmt.Errorf("failed to create providers directory: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to marshal provider %s: %w", id, err)
	}

	return os.WriteFile(path.Join(pr.root, "providers", id+".json"), data, 0600)
}

func (pr *ProviderRepository) List(ctx context.Context, filter persistence.ProviderFilter) ([]*models.ProviderBundle, error) {
	ids, err := listIDs(path.Join(pr.root, "providers"))
	if err != nil {
		return nil, err
	}

	bundles := make([]*models.ProviderBundle, 0, len(ids))

	for _, id := range ids {
		bundle, err := pr.GetByID(ctx, id)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		if filter.State != "" && bundle.State != filter.State {
			continue
		}

		if filter.Active != nil && bundle.Active != *filter.Active {
			continue
		}

		bundles = append(bundles, bundle)
	}

	return bundles, nil
}

func (pr *ProviderRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(path.Join(pr.root, "providers", id+".json"))
	if err != nil && os.IsNotExist(err) {
		return persistence.NewBundleError("Delete", id, persistence.ErrProviderNotFound)
	}

	return err
}

// listIDs returns the record ids found in a store directory.
func listIDs(dir string) ([]string, error) {
	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, file[:len(file)-len(".json")])
	}

	return ids, nil
}
