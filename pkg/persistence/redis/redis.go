// Package redis provides a redis-backed record store. Optimistic saves use
// WATCH/MULTI so concurrent writers to the same bundle resolve to a single
// winner.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
)

const (
	providerKeyPrefix = "registrar:providers:"
	serviceKeyPrefix  = "registrar:services:"
	providerIndexKey  = "registrar:providers"
	serviceIndexKey   = "registrar:services"
)

// Persistence implements persistence.Persistence on a redis client.
type Persistence struct {
	client       *goredis.Client
	providerRepo *ProviderRepository
	serviceRepo  *ServiceRepository
}

// NewPersistence creates a redis-backed store from a connection URL.
func NewPersistence(url string) (*Persistence, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	return &Persistence{
		client:       client,
		providerRepo: &ProviderRepository{client: client},
		serviceRepo:  &ServiceRepository{client: client},
	}, nil
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *Persistence) ProviderRepository() persistence.ProviderRepository {
	return rp.providerRepo
}

func (rp *Persistence) ServiceRepository() persistence.ServiceRepository {
	return rp.serviceRepo
}

// saveOptimistic performs the shared WATCH/compare/MULTI write cycle.
// revision points at the caller's bundle revision and is incremented on
// success.
func saveOptimistic(
	ctx context.Context,
	client *goredis.Client,
	key, indexKey, id string,
	revision *int64,
	currentRevision func(raw string) (int64, error),
	marshal func() ([]byte, error),
) error {
	err := client.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()

		switch {
		case errors.Is(err, goredis.Nil):
			if *revision != 0 {
				return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
			}
		case err != nil:
			return fmt.Errorf("failed to read %s: %w", key, err)
		default:
			stored, err := currentRevision(raw)
			if err != nil {
				return err
			}

			if stored != *revision {
				return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
			}
		}

		*revision++

		data, err := marshal()
		if err != nil {
			*revision--

			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, indexKey, id)

			return nil
		})
		if err != nil {
			*revision--
		}

		return err
	}, key)

	if errors.Is(err, goredis.TxFailedErr) {
		return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
	}

	return err
}

// ProviderRepository stores provider bundles as JSON values with a set index
// for listing.
type ProviderRepository struct {
	client *goredis.Client
}

func (pr *ProviderRepository) GetByID(ctx context.Context, id string) (*models.ProviderBundle, error) {
	raw, err := pr.client.Get(ctx, providerKeyPrefix+id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewBundleError("GetByID", id, persistence.ErrProviderNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read provider %s: %w", id, err)
	}

	var bundle models.ProviderBundle

	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider %s: %w", id, err)
	}

	return &bundle, nil
}

func (pr *ProviderRepository) Save(ctx context.Context, bundle *models.ProviderBundle) error {
	id := bundle.GetID()

	return saveOptimistic(ctx, pr.client, providerKeyPrefix+id, providerIndexKey, id,
		&bundle.Revision,
		func(raw string) (int64, error) {
			var stored models.ProviderBundle
			if err := json.Unmarshal([]byte(raw), &stored); err != nil {
				return 0, fmt.Errorf("failed to unmarshal provider %s: %w", id, err)
			}

			return stored.Revision, nil
		},
		func() ([]byte, error) { return json.Marshal(bundle) },
	)
}

func (pr *ProviderRepository) List(ctx context.Context, filter persistence.ProviderFilter) ([]*models.ProviderBundle, error) {
	ids, err := pr.client.SMembers(ctx, providerIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
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

func (pr *ProviderRepository) Delete(ctx context.Context, id string) error {
	removed, err := pr.client.Del(ctx, providerKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete provider %s: %w", id, err)
	}

	if removed == 0 {
		return persistence.NewBundleError("Delete", id, persistence.ErrProviderNotFound)
	}

	return pr.client.SRem(ctx, providerIndexKey, id).Err()
}

// ServiceRepository mirrors ProviderRepository for service bundles.
type ServiceRepository struct {
	client *goredis.Client
}

func (sr *ServiceRepository) GetByID(ctx context.Context, id string) (*models.ServiceBundle, error) {
	raw, err := sr.client.Get(ctx, serviceKeyPrefix+id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewBundleError("GetByID", id, persistence.ErrServiceNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read service %s: %w", id, err)
	}

	var bundle models.ServiceBundle

	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service %s: %w", id, err)
	}

	return &bundle, nil
}

func (sr *ServiceRepository) Save(ctx context.Context, bundle *models.ServiceBundle) error {
	id := bundle.GetID()

	return saveOptimistic(ctx, sr.client, serviceKeyPrefix+id, serviceIndexKey, id,
		&bundle.Revision,
		func(raw string) (int64, error) {
			var stored models.ServiceBundle
			if err := json.Unmarshal([]byte(raw), &stored); err != nil {
				return 0, fmt.Errorf("failed to unmarshal service %s: %w", id, err)
			}

			return stored.Revision, nil
		},
		func() ([]byte, error) { return json.Marshal(bundle) },
	)
}

func (sr *ServiceRepository) List(ctx context.Context, filter persistence.ServiceFilter) ([]*models.ServiceBundle, error) {
	ids, err := sr.client.SMembers(ctx, serviceIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
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

func (sr *ServiceRepository) Delete(ctx context.Context, id string) error {
	removed, err := sr.client.Del(ctx, serviceKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete service %s: %w", id, err)
	}

	if removed == 0 {
		return persistence.NewBundleError("Delete", id, persistence.ErrServiceNotFound)
	}

	return sr.client.SRem(ctx, serviceIndexKey, id).Err()
}
