package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/nfe"
)

// Valores por defecto de los códigos tributarios cuando el producto no los trae.
const (
	defaultNCM  = "30049099" // medicamentos, demais
	defaultCFOP = "5102"     // venda de mercadoria adquirida de terceiros
)

// NFeAdapter emite NF-e a través de la API remota del proveedor contratado.
//
//	payload → documento (processing|pending) + log → API remota → documento actualizado + log
//
// Con la integración remota deshabilitada el documento queda pending y solo se simula la espera.
type NFeAdapter struct {
	tx             TxRunner
	issuer         nfe.Issuer // nil si la integración remota está deshabilitada
	remoteEnabled  bool
	simulatedDelay time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// NewNFeAdapter construye el adaptador. issuer puede ser nil si cfg.NFeRemoteEnabled es false.
func NewNFeAdapter(tx TxRunner, issuer nfe.Issuer, cfg Config, logger zerolog.Logger) *NFeAdapter {
	return &NFeAdapter{
		tx:             tx,
		issuer:         issuer,
		remoteEnabled:  cfg.NFeRemoteEnabled && issuer != nil,
		simulatedDelay: cfg.NFeSimulatedDelay,
		logger:         logger,
		now:            time.Now,
	}
}

// Emit crea el documento NF-e del pedido. Devuelve error solo si el documento no pudo registrarse;
// los fallos del proveedor quedan en el documento (rejected) y en el resultado.
func (a *NFeAdapter) Emit(ctx context.Context, order *entity.Order, settings *entity.FiscalSettings) (*entity.FiscalResult, error) {
	now := a.now()
	docID := uuid.New().String()
	payload := buildNFePayload(docID, order)

	status := entity.DocumentStatusPending
	if a.remoteEnabled {
		status = entity.DocumentStatusProcessing
	}
	doc := &entity.FiscalDocument{
		ID:        docID,
		StoreID:   settings.StoreID,
		OrderID:   order.ID,
		Type:      entity.DocumentTypeNFe,
		Status:    status,
		Provider:  nfeProviderName(settings),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := createWithLog(ctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: docID,
		Action:    entity.LogActionEmitRequest,
		Payload:   toMap(payload),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("registrar documento NF-e: %w", err)
	}

	log := a.logger.With().Str("document_id", docID).Str("order_id", order.ID).Logger()

	if !a.remoteEnabled {
		return a.simulateRemote(ctx, doc, settings, log), nil
	}

	res, err := a.issuer.Issue(ctx, payload)
	if err != nil {
		return a.reject(ctx, doc, err, log), nil
	}

	doc.ProviderRef = res.ID
	doc.InvoiceNumber = res.Number
	if doc.InvoiceNumber == "" {
		doc.InvoiceNumber = res.ID
	}
	doc.RawResponse = res.Raw
	doc.UpdatedAt = a.now()

	pctx, cancel := detached(ctx)
	defer cancel()
	if err := updateWithLog(pctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: docID,
		Action:    entity.LogActionEmitResponse,
		Response:  res.Raw,
		CreatedAt: doc.UpdatedAt,
	}); err != nil {
		log.Error().Err(err).Msg("nfe: no se pudo persistir la respuesta del proveedor")
	}
	log.Info().Str("provider_ref", res.ID).Msg("nfe: nota aceptada para procesamiento")
	return entity.ResultFromDocument(doc, true, "NF-e enviada, en procesamiento"), nil
}

// simulateRemote espera el retardo configurado; el documento persistido queda pending.
// El estado del resultado es simulated si la tienda no tiene proveedor NF-e, si no processing.
// Si el contexto vence durante la espera el documento pasa a error.
func (a *NFeAdapter) simulateRemote(ctx context.Context, doc *entity.FiscalDocument, settings *entity.FiscalSettings, log zerolog.Logger) *entity.FiscalResult {
	if a.simulatedDelay > 0 {
		timer := time.NewTimer(a.simulatedDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Msg("nfe: espera simulada interrumpida")
			return a.interrupted(ctx, doc, log)
		}
	}
	res := entity.ResultFromDocument(doc, true, "integración NF-e remota deshabilitada; documento pendiente")
	if settings.NFeProvider == "" || settings.NFeProvider == entity.NFeProviderNone {
		res.Status = entity.DocumentStatusSimulated
	} else {
		res.Status = entity.DocumentStatusProcessing
	}
	log.Info().Str("result_status", string(res.Status)).Msg("nfe: emisión simulada")
	return res
}

// interrupted cierra en error un documento cuya emisión se cortó por timeout o cancelación.
func (a *NFeAdapter) interrupted(ctx context.Context, doc *entity.FiscalDocument, log zerolog.Logger) *entity.FiscalResult {
	msg := "emisión interrumpida: tiempo de espera agotado"
	raw := map[string]any{entity.RawKeyMessage: msg}
	doc.Status = entity.DocumentStatusError
	doc.ErrorMessage = msg
	doc.RawResponse = raw
	doc.UpdatedAt = a.now()

	pctx, cancel := detached(ctx)
	defer cancel()
	if err := updateWithLog(pctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    entity.LogActionEmitError,
		Response:  raw,
		CreatedAt: doc.UpdatedAt,
	}); err != nil {
		log.Error().Err(err).Msg("nfe: no se pudo persistir la interrupción")
	}
	return entity.ResultFromDocument(doc, false, msg)
}

// reject deja el documento en rejected con el mensaje del proveedor.
func (a *NFeAdapter) reject(ctx context.Context, doc *entity.FiscalDocument, cause error, log zerolog.Logger) *entity.FiscalResult {
	msg := cause.Error()
	raw := map[string]any{entity.RawKeyMessage: msg}
	var apiErr *nfe.APIError
	if errors.As(cause, &apiErr) {
		msg = apiErr.Message
		raw = map[string]any{entity.RawKeyMessage: msg, "httpStatus": apiErr.StatusCode}
		if apiErr.Raw != nil {
			raw[entity.RawKeyResponse] = apiErr.Raw
		}
	} else if ctx.Err() != nil {
		msg = "tiempo de espera agotado con el proveedor NF-e"
	}

	doc.Status = entity.DocumentStatusRejected
	doc.ErrorMessage = msg
	doc.RawResponse = raw
	doc.UpdatedAt = a.now()

	pctx, cancel := detached(ctx)
	defer cancel()
	if err := updateWithLog(pctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    entity.LogActionEmitError,
		Response:  raw,
		CreatedAt: doc.UpdatedAt,
	}); err != nil {
		log.Error().Err(err).Msg("nfe: no se pudo persistir el rechazo")
	}
	log.Warn().Err(cause).Msg("nfe: el proveedor rechazó la nota")
	return entity.ResultFromDocument(doc, false, msg)
}

func nfeProviderName(s *entity.FiscalSettings) string {
	if s.NFeProvider == "" || s.NFeProvider == entity.NFeProviderNone {
		return ProviderNameNFeAPI
	}
	return ProviderNameNFeAPI + ":" + string(s.NFeProvider)
}

// buildNFePayload arma la nota: destinatario, ítems con NCM/CFOP y forma de pago.
func buildNFePayload(docID string, order *entity.Order) nfe.InvoicePayload {
	items := make([]nfe.Item, 0, len(order.Items))
	for _, it := range order.Items {
		ncm, cfop := it.NCM, it.CFOP
		if ncm == "" {
			ncm = defaultNCM
		}
		if cfop == "" {
			cfop = defaultCFOP
		}
		items = append(items, nfe.Item{
			Code:        it.ProductID,
			Description: it.Name,
			NCM:         ncm,
			CFOP:        cfop,
			Quantity:    it.Quantity,
			UnitPrice:   it.PriceAtPurchase,
			Total:       it.Subtotal(),
		})
	}
	return nfe.InvoicePayload{
		ExternalID: docID,
		OrderID:    order.ID,
		Customer: nfe.Customer{
			ID:       order.CustomerID,
			Name:     order.CustomerName,
			Document: order.CustomerDocument,
			Address:  order.Address,
		},
		Items:    items,
		Payments: []nfe.Payment{{Method: order.PaymentMethod, Amount: order.TotalAmount}},
		Total:    order.TotalAmount,
	}
}
