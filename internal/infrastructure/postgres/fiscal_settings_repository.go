package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

var _ repository.FiscalSettingsRepository = (*FiscalSettingsRepo)(nil)

// FiscalSettingsRepo implementación de FiscalSettingsRepository sobre fiscal_settings.
type FiscalSettingsRepo struct {
	q Querier
}

// NewFiscalSettingsRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalSettingsRepository(q Querier) *FiscalSettingsRepo {
	return &FiscalSettingsRepo{q: q}
}

// GetByStore obtiene la configuración de la tienda; nil, nil si no existe.
func (r *FiscalSettingsRepo) GetByStore(ctx context.Context, storeID string) (*entity.FiscalSettings, error) {
	const query = `
		SELECT id, store_id, mode,
		       COALESCE(sat_endpoint_url, ''), COALESCE(ecf_endpoint_url, ''),
		       COALESCE(nfe_provider, 'none'), COALESCE(provider_id, 'simulated'),
		       COALESCE(store_name, ''), COALESCE(cashier_number, ''),
		       last_updated
		FROM fiscal_settings WHERE store_id = $1`
	var s entity.FiscalSettings
	var mode, nfeProvider string
	err := r.q.QueryRow(ctx, query, storeID).Scan(
		&s.ID, &s.StoreID, &mode,
		&s.SATEndpointURL, &s.ECFEndpointURL,
		&nfeProvider, &s.ProviderID,
		&s.StoreName, &s.CashierNumber,
		&s.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal settings: %w", err)
	}
	s.Mode = entity.FiscalMode(mode)
	s.NFeProvider = entity.NFeProvider(nfeProvider)
	return &s, nil
}

// Upsert crea o reemplaza la configuración de la tienda. El id existente se conserva.
func (r *FiscalSettingsRepo) Upsert(ctx context.Context, s *entity.FiscalSettings) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO fiscal_settings (id, store_id, mode, sat_endpoint_url, ecf_endpoint_url,
		                             nfe_provider, provider_id, store_name, cashier_number, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (store_id) DO UPDATE
		SET mode             = EXCLUDED.mode,
		    sat_endpoint_url = EXCLUDED.sat_endpoint_url,
		    ecf_endpoint_url = EXCLUDED.ecf_endpoint_url,
		    nfe_provider     = EXCLUDED.nfe_provider,
		    provider_id      = EXCLUDED.provider_id,
		    store_name       = EXCLUDED.store_name,
		    cashier_number   = EXCLUDED.cashier_number,
		    last_updated     = EXCLUDED.last_updated
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		s.ID, s.StoreID, string(s.Mode),
		nullIfEmpty(s.SATEndpointURL), nullIfEmpty(s.ECFEndpointURL),
		string(s.NFeProvider), s.ProviderID,
		nullIfEmpty(s.StoreName), nullIfEmpty(s.CashierNumber),
		s.LastUpdated,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("upsert fiscal settings: %w", err)
	}
	return nil
}
