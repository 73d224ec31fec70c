package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

// ProviderUseCase operaciones sobre los plug-ins de proveedor: emisión alternativa,
// consulta de estado y cancelación.
type ProviderUseCase struct {
	settings repository.FiscalSettingsRepository
	orders   repository.OrderRepository
	docs     repository.FiscalDocumentRepository
	tx       TxRunner
	registry *ProviderRegistry
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProviderUseCase construye el caso de uso.
func NewProviderUseCase(
	settings repository.FiscalSettingsRepository,
	orders repository.OrderRepository,
	docs repository.FiscalDocumentRepository,
	tx TxRunner,
	registry *ProviderRegistry,
	logger zerolog.Logger,
) *ProviderUseCase {
	return &ProviderUseCase{
		settings: settings,
		orders:   orders,
		docs:     docs,
		tx:       tx,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// EmitWithProvider emite una NF-e con el plug-in configurado en la tienda (provider_id).
// El intento queda registrado aunque el proveedor falle.
func (uc *ProviderUseCase) EmitWithProvider(ctx context.Context, storeID, orderID string) (*entity.FiscalResult, error) {
	settings, err := uc.settings.GetByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("leer configuración fiscal: %w", err)
	}
	if settings == nil {
		settings = entity.NewDefaultFiscalSettings("", storeID, uc.now())
	}
	provider, err := uc.registry.Get(settings.ProviderID)
	if err != nil {
		return nil, err
	}
	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("leer pedido: %w", err)
	}
	if order == nil || (order.StoreID != "" && order.StoreID != storeID) {
		return nil, fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
	}

	now := uc.now()
	doc := &entity.FiscalDocument{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		OrderID:   order.ID,
		Type:      entity.DocumentTypeNFe,
		Status:    entity.DocumentStatusProcessing,
		Provider:  provider.ID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := createWithLog(ctx, uc.tx, doc, &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    entity.LogActionEmitRequest,
		Payload:   map[string]any{"orderId": order.ID, "provider": provider.ID()},
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("registrar documento: %w", err)
	}

	log := uc.logger.With().Str("document_id", doc.ID).Str("provider", provider.ID()).Logger()

	res, emitErr := provider.Emit(ctx, EmissionPayload{DocumentID: doc.ID, Order: order, Settings: settings})
	if emitErr != nil {
		doc.Status = entity.DocumentStatusError
		doc.ErrorMessage = emitErr.Error()
		doc.RawResponse = map[string]any{entity.RawKeyMessage: emitErr.Error()}
		uc.persist(ctx, doc, entity.LogActionEmitError, log)
		log.Warn().Err(emitErr).Msg("provider: emisión fallida")
		return nil, emitErr
	}

	uc.apply(doc, res)
	uc.persist(ctx, doc, entity.LogActionEmitResponse, log)
	return entity.ResultFromDocument(doc, res.Success, res.Message), nil
}

// RefreshStatus consulta al proveedor el estado de un documento pending o processing.
// Un documento en estado final se devuelve tal cual, sin llamar al proveedor.
func (uc *ProviderUseCase) RefreshStatus(ctx context.Context, storeID, documentID string) (*entity.FiscalResult, error) {
	doc, err := uc.document(ctx, storeID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status.IsTerminal() {
		return entity.ResultFromDocument(doc, doc.Status == entity.DocumentStatusApproved || doc.Status == entity.DocumentStatusSimulated, "estado definitivo"), nil
	}
	if doc.ProviderRef == "" {
		return nil, fmt.Errorf("%w: el documento no tiene referencia del proveedor", domain.ErrConflict)
	}
	provider, err := uc.registry.ForDocument(doc.Provider)
	if err != nil {
		return nil, err
	}
	res, err := provider.GetStatus(ctx, doc.ProviderRef)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(doc.Status, res.Status) {
		return nil, fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, doc.Status, res.Status)
	}
	uc.apply(doc, res)
	log := uc.logger.With().Str("document_id", doc.ID).Str("provider", provider.ID()).Logger()
	uc.persist(ctx, doc, entity.LogActionStatusResponse, log)
	return entity.ResultFromDocument(doc, res.Success, res.Message), nil
}

// Cancel cancela un documento aprobado (approved → canceled).
func (uc *ProviderUseCase) Cancel(ctx context.Context, storeID, documentID, reason string) (*entity.FiscalResult, error) {
	doc, err := uc.document(ctx, storeID, documentID)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(doc.Status, entity.DocumentStatusCanceled) || doc.Status == entity.DocumentStatusCanceled {
		return nil, fmt.Errorf("%w: solo se cancelan documentos aprobados (estado actual %s)", domain.ErrInvalidTransition, doc.Status)
	}
	provider, err := uc.registry.ForDocument(doc.Provider)
	if err != nil {
		return nil, err
	}
	res, err := provider.Cancel(ctx, doc.ProviderRef, reason)
	if err != nil {
		return nil, err
	}
	if res.Status != entity.DocumentStatusCanceled {
		return entity.ResultFromDocument(doc, false, res.Message), nil
	}
	uc.apply(doc, res)
	log := uc.logger.With().Str("document_id", doc.ID).Str("provider", provider.ID()).Logger()
	uc.persist(ctx, doc, entity.LogActionCancel, log)
	return entity.ResultFromDocument(doc, true, res.Message), nil
}

func (uc *ProviderUseCase) document(ctx context.Context, storeID, documentID string) (*entity.FiscalDocument, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("leer documento: %w", err)
	}
	if doc == nil || doc.StoreID != storeID {
		return nil, fmt.Errorf("documento %s: %w", documentID, domain.ErrNotFound)
	}
	return doc, nil
}

// apply copia al documento lo que devolvió el proveedor.
func (uc *ProviderUseCase) apply(doc *entity.FiscalDocument, res *entity.FiscalResult) {
	if res.Status != "" && entity.CanTransition(doc.Status, res.Status) {
		doc.Status = res.Status
	}
	if res.ProviderID != "" {
		doc.ProviderRef = res.ProviderID
	}
	if res.InvoiceNumber != "" {
		doc.InvoiceNumber = res.InvoiceNumber
	}
	if res.Protocol != "" {
		doc.SefazProtocol = res.Protocol
	}
	if res.XMLURL != "" {
		doc.XMLURL = res.XMLURL
	}
	if res.PDFURL != "" {
		doc.PDFURL = res.PDFURL
	}
	if doc.Status == entity.DocumentStatusRejected || doc.Status == entity.DocumentStatusError {
		doc.ErrorMessage = res.Message
	}
	doc.RawResponse = toMap(res)
	doc.UpdatedAt = uc.now()
}

func (uc *ProviderUseCase) persist(ctx context.Context, doc *entity.FiscalDocument, action string, log zerolog.Logger) {
	pctx, cancel := detached(ctx)
	defer cancel()
	if err := updateWithLog(pctx, uc.tx, doc, &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    action,
		Response:  doc.RawResponse,
		CreatedAt: doc.UpdatedAt,
	}); err != nil {
		log.Error().Err(err).Str("action", action).Msg("provider: no se pudo persistir el documento")
	}
}
