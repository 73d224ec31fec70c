package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// ProviderNameSimulated valor de FiscalDocument.Provider para documentos simulados.
const ProviderNameSimulated = "simulated"

// SimulationAdapter emite documentos sin valor fiscal: útil en desarrollo y como respaldo
// de SAT/ECF cuando la tienda no configuró el bridge.
type SimulationAdapter struct {
	tx     TxRunner
	logger zerolog.Logger
	now    func() time.Time
}

// NewSimulationAdapter construye el adaptador.
func NewSimulationAdapter(tx TxRunner, logger zerolog.Logger) *SimulationAdapter {
	return &SimulationAdapter{tx: tx, logger: logger, now: time.Now}
}

// Emit crea un documento simulated del tipo pedido. Nunca llama a la red.
func (a *SimulationAdapter) Emit(ctx context.Context, docType entity.DocumentType, order *entity.Order, settings *entity.FiscalSettings) (*entity.FiscalResult, error) {
	now := a.now()
	number := simulatedNumber(now)
	printData := RenderCouponText(settings.StoreName, docType, number, order)

	doc := &entity.FiscalDocument{
		ID:            uuid.New().String(),
		StoreID:       settings.StoreID,
		OrderID:       order.ID,
		Type:          docType,
		Status:        entity.DocumentStatusSimulated,
		Provider:      ProviderNameSimulated,
		InvoiceNumber: number,
		RawResponse: map[string]any{
			entity.RawKeyPrintData: printData,
			"simulated":            true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    entity.LogActionEmitResponse,
		Payload:   map[string]any{"orderId": order.ID, "type": string(docType)},
		Response:  map[string]any{"invoiceNumber": number, "status": string(doc.Status)},
		CreatedAt: now,
	}
	if err := createWithLog(ctx, a.tx, doc, entry); err != nil {
		return nil, fmt.Errorf("registrar documento simulado: %w", err)
	}

	a.logger.Info().Str("document_id", doc.ID).Str("order_id", order.ID).
		Str("type", string(docType)).Str("number", number).Msg("documento simulado emitido")
	return entity.ResultFromDocument(doc, true, "documento simulado, sin valor fiscal"), nil
}

// simulatedNumber SIM-<yyyymmddhhmmss>-<4 hex>.
func simulatedNumber(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:4]
	return fmt.Sprintf("SIM-%s-%s", t.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}
