// Package file provides a file-based record store for provider and service
// bundles. It is the default backend for tests and single-node deployments.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/opencatalog/registrar/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root         string
	providerRepo *ProviderRepository
	serviceRepo  *ServiceRepository
}

// NewPersistence creates a file-backed store rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	// Optimistic saves are serialized through a shared mutex; the file
	// system offers no compare-and-swap of its own.
	mu := &sync.Mutex{}

	return &Persistence{
		root:         cleanRoot,
		providerRepo: NewProviderRepository(cleanRoot, mu),
		serviceRepo:  NewServiceRepository(cleanRoot, mu),
	}
}

// Close performs any necessary cleanup. Nothing to release for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) ProviderRepository() persistence.ProviderRepository {
	return fp.providerRepo
}

func (fp *Persistence) ServiceRepository() persistence.ServiceRepository {
	return fp.serviceRepo
}
