// Package postgresql provides a postgres-backed record store. It is the
// backend of choice when the deployment needs hard guarantees: revisions are
// compared in the UPDATE itself, and a partial unique index makes the
// one-service-template-per-provider rule a real constraint instead of a
// query-then-check.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/opencatalog/registrar/pkg/models"
	"github.com/opencatalog/registrar/pkg/persistence"
)

const uniqueViolation = "23505"

// Persistence implements persistence.Persistence on a postgres database.
type Persistence struct {
	db           *sql.DB
	providerRepo *ProviderRepository
	serviceRepo  *ServiceRepository
}

// NewPersistence opens the database and applies the schema migration.
func NewPersistence(ctx context.Context, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Persistence{
		db:           db,
		providerRepo: &ProviderRepository{db: db},
		serviceRepo:  &ServiceRepository{db: db},
	}, nil
}

func (pp *Persistence) Close(_ context.Context) error {
	return pp.db.Close()
}

func (pp *Persistence) HealthCheck(ctx context.Context) error {
	return pp.db.PingContext(ctx)
}

func (pp *Persistence) ProviderRepository() persistence.ProviderRepository {
	return pp.providerRepo
}

func (pp *Persistence) ServiceRepository() persistence.ServiceRepository {
	return pp.serviceRepo
}

// ProviderRepository stores provider bundles as jsonb rows. State and active
// are denormalized into columns so listings filter in SQL.
type ProviderRepository struct {
	db *sql.DB
}

func (pr *ProviderRepository) GetByID(ctx context.Context, id string) (*models.ProviderBundle, error) {
	var data []byte

	err := pr.db.QueryRowContext(ctx,
		`SELECT data FROM providers WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewBundleError("GetByID", id, persistence.ErrProviderNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read provider %s: %w", id, err)
	}

	var bundle models.ProviderBundle

	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provider %s: %w", id, err)
	}

	return &bundle, nil
}

func (pr *ProviderRepository) Save(ctx context.Context, bundle *models.ProviderBundle) error {
	id := bundle.GetID()
	expected := bundle.Revision
	bundle.Revision++

	data, err := json.Marshal(bundle)
	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to marshal provider %s: %w", id, err)
	}

	var result sql.Result

	if expected == 0 {
		result, err = pr.db.ExecContext(ctx,
			`INSERT INTO providers (id, data, revision, state, active)
			 VALUES ($1, $2, 1, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			id, data, string(bundle.State), bundle.Active)
	} else {
		result, err = pr.db.ExecContext(ctx,
			`UPDATE providers
			 SET data = $2, revision = revision + 1, state = $3, active = $4
			 WHERE id = $1 AND revision = $5`,
			id, data, string(bundle.State), bundle.Active, expected)
	}

	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to save provider %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to save provider %s: %w", id, err)
	}

	if affected == 0 {
		bundle.Revision--

		return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
	}

	return nil
}

func (pr *ProviderRepository) List(ctx context.Context, filter persistence.ProviderFilter) ([]*models.ProviderBundle, error) {
	query := `SELECT data FROM providers WHERE 1=1`
	args := make([]any, 0, 2)

	if filter.State != "" {
		args = append(args, string(filter.State))
		query += fmt.Sprintf(` AND state = $%d`, len(args))
	}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(` AND active = $%d`, len(args))
	}

	rows, err := pr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var bundles []*models.ProviderBundle

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan provider row: %w", err)
		}

		var bundle models.ProviderBundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("failed to unmarshal provider row: %w", err)
		}

		bundles = append(bundles, &bundle)
	}

	return bundles, rows.Err()
}

func (pr *ProviderRepository) Delete(ctx context.Context, id string) error {
	result, err := pr.db.ExecContext(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete provider %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewBundleError("Delete", id, persistence.ErrProviderNotFound)
	}

	return nil
}

// ServiceRepository stores service bundles as jsonb rows. The partial unique
// index on (main_provider) for template rows turns a duplicate template
// submission into ErrDuplicateTemplate at the storage layer.
type ServiceRepository struct {
	db *sql.DB
}

func (sr *ServiceRepository) GetByID(ctx context.Context, id string) (*models.ServiceBundle, error) {
	var data []byte

	err := sr.db.QueryRowContext(ctx,
		`SELECT data FROM services WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewBundleError("GetByID", id, persistence.ErrServiceNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read service %s: %w", id, err)
	}

	var bundle models.ServiceBundle

	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service %s: %w", id, err)
	}

	return &bundle, nil
}

func (sr *ServiceRepository) Save(ctx context.Context, bundle *models.ServiceBundle) error {
	id := bundle.GetID()
	expected := bundle.Revision
	bundle.Revision++

	data, err := json.Marshal(bundle)
	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to marshal service %s: %w", id, err)
	}

	var result sql.Result

	if expected == 0 {
		result, err = sr.db.ExecContext(ctx,
			`INSERT INTO services (id, data, revision, main_provider, template)
			 VALUES ($1, $2, 1, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			id, data, bundle.Payload.MainProvider, bundle.Template)
	} else {
		result, err = sr.db.ExecContext(ctx,
			`UPDATE services
			 SET data = $2, revision = revision + 1, main_provider = $3, template = $4
			 WHERE id = $1 AND revision = $5`,
			id, data, bundle.Payload.MainProvider, bundle.Template, expected)
	}

	if err != nil {
		bundle.Revision--

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewBundleError("Save", id, persistence.ErrDuplicateTemplate)
		}

		return fmt.Errorf("failed to save service %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		bundle.Revision--

		return fmt.Errorf("failed to save service %s: %w", id, err)
	}

	if affected == 0 {
		bundle.Revision--

		return persistence.NewBundleError("Save", id, persistence.ErrRevisionConflict)
	}

	return nil
}

func (sr *ServiceRepository) List(ctx context.Context, filter persistence.ServiceFilter) ([]*models.ServiceBundle, error) {
	query := `SELECT data FROM services WHERE 1=1`
	args := make([]any, 0, 2)

	if filter.MainProvider != "" {
		args = append(args, filter.MainProvider)
		query += fmt.Sprintf(` AND main_provider = $%d`, len(args))
	}

	if filter.Template != nil {
		args = append(args, *filter.Template)
		query += fmt.Sprintf(` AND template = $%d`, len(args))
	}

	rows, err := sr.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var bundles []*models.ServiceBundle

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", err)
		}

		var bundle models.ServiceBundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("failed to unmarshal service row: %w", err)
		}

		bundles = append(bundles, &bundle)
	}

	return bundles, rows.Err()
}

func (sr *ServiceRepository) Delete(ctx context.Context, id string) error {
	result, err := sr.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete service %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete service %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewBundleError("Delete", id, persistence.ErrServiceNotFound)
	}

	return nil
}
