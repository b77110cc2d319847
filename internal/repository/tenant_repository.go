package repository

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/support-agent/internal/domain"
)

// TenantRepository encapsulates tenant persistence.
type TenantRepository interface {
	Upsert(ctx context.Context, tenant *domain.Tenant) error
	GetByEmail(ctx context.Context, email string) (*domain.Tenant, error)
}

type tenantRepository struct {
	db Querier
}

// NewTenantRepository instantiates repository.
func NewTenantRepository(db Querier) TenantRepository {
	return &tenantRepository{db: db}
}

// Upsert inserts the tenant or, when the inbox is already known,
// converges on the existing row. ON CONFLICT keeps the operation valid
// inside an open transaction; a raw unique violation would abort it.
func (r *tenantRepository) Upsert(ctx context.Context, tenant *domain.Tenant) error {
	const query = `
        INSERT INTO tenants (name, email, auth_config, integrations_config)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
        RETURNING id, name, created_at`

	authCfg, err := json.Marshal(orEmpty(tenant.AuthConfig))
	if err != nil {
		return err
	}
	integrationsCfg, err := json.Marshal(orEmpty(tenant.IntegrationsConfig))
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, query,
		tenant.Name,
		tenant.Email,
		authCfg,
		integrationsCfg,
	).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
}

func (r *tenantRepository) GetByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	const query = `
        SELECT id, name, email, auth_config, integrations_config, created_at
        FROM tenants WHERE email=$1`

	var tenant domain.Tenant
	var authCfg, integrationsCfg []byte
	if err := r.db.QueryRow(ctx, query, email).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Email,
		&authCfg,
		&integrationsCfg,
		&tenant.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(authCfg, &tenant.AuthConfig); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(integrationsCfg, &tenant.IntegrationsConfig); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
