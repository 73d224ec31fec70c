package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/application/dto"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

// SettingsUseCase lectura y guardado de la configuración fiscal de la tienda.
type SettingsUseCase struct {
	repo     repository.FiscalSettingsRepository
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSettingsUseCase construye el caso de uso.
func NewSettingsUseCase(repo repository.FiscalSettingsRepository, validate *validator.Validate, logger zerolog.Logger) *SettingsUseCase {
	return &SettingsUseCase{repo: repo, validate: validate, logger: logger, now: time.Now}
}

// GetSettings devuelve la configuración; en el primer acceso la crea con emisión deshabilitada.
func (uc *SettingsUseCase) GetSettings(ctx context.Context, storeID string) (*entity.FiscalSettings, error) {
	s, err := uc.repo.GetByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("leer configuración fiscal: %w", err)
	}
	if s != nil {
		return s, nil
	}
	s = entity.NewDefaultFiscalSettings(uuid.New().String(), storeID, uc.now())
	if err := uc.repo.Upsert(ctx, s); err != nil {
		return nil, fmt.Errorf("crear configuración fiscal: %w", err)
	}
	uc.logger.Info().Str("store_id", storeID).Msg("configuración fiscal creada con modo none")
	return s, nil
}

// SaveSettings valida y reemplaza la configuración de la tienda.
func (uc *SettingsUseCase) SaveSettings(ctx context.Context, storeID string, req dto.SaveFiscalSettingsRequest) (*entity.FiscalSettings, error) {
	req.Mode = strings.TrimSpace(req.Mode)
	req.SATEndpointURL = strings.TrimSpace(req.SATEndpointURL)
	req.ECFEndpointURL = strings.TrimSpace(req.ECFEndpointURL)
	if err := uc.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, validationMessage(err))
	}

	current, err := uc.repo.GetByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("leer configuración fiscal: %w", err)
	}
	id := uuid.New().String()
	if current != nil {
		id = current.ID
	}

	s := &entity.FiscalSettings{
		ID:             id,
		StoreID:        storeID,
		Mode:           entity.FiscalMode(req.Mode),
		SATEndpointURL: req.SATEndpointURL,
		ECFEndpointURL: req.ECFEndpointURL,
		NFeProvider:    entity.NFeProvider(req.NFeProvider),
		ProviderID:     req.ProviderID,
		StoreName:      strings.TrimSpace(req.StoreName),
		CashierNumber:  strings.TrimSpace(req.CashierNumber),
		LastUpdated:    uc.now(),
	}
	if s.NFeProvider == "" {
		s.NFeProvider = entity.NFeProviderNone
	}
	if s.ProviderID == "" {
		s.ProviderID = entity.ProviderSimulated
	}
	if err := uc.repo.Upsert(ctx, s); err != nil {
		return nil, fmt.Errorf("guardar configuración fiscal: %w", err)
	}
	uc.logger.Info().Str("store_id", storeID).Str("mode", string(s.Mode)).Msg("configuración fiscal actualizada")
	return s, nil
}

// validationMessage resume los errores del validador en un mensaje legible.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" es obligatorio")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s debe ser uno de [%s]", fe.Field(), fe.Param()))
		case "http_url":
			parts = append(parts, fe.Field()+" debe ser una URL http(s)")
		case "max":
			parts = append(parts, fmt.Sprintf("%s supera %s caracteres", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s requiere al menos %s caracteres", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fe.Field()+" inválido")
		}
	}
	return strings.Join(parts, "; ")
}
