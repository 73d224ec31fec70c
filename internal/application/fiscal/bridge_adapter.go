package fiscal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/bridge"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/xmlinfo"
)

// BridgeAdapter emite cupones SAT o ECF a través del bridge local de la tienda.
// Ambos equipos comparten el flujo; solo cambian el endpoint y el tipo de documento.
type BridgeAdapter struct {
	tx     TxRunner
	sender bridge.Sender
	sim    *SimulationAdapter
	logger zerolog.Logger
	now    func() time.Time
}

// NewBridgeAdapter construye el adaptador. sim atiende las tiendas sin bridge configurado.
func NewBridgeAdapter(tx TxRunner, sender bridge.Sender, sim *SimulationAdapter, logger zerolog.Logger) *BridgeAdapter {
	return &BridgeAdapter{tx: tx, sender: sender, sim: sim, logger: logger, now: time.Now}
}

// Emit envía la venta al bridge. docType debe ser sat o ecf.
// Sin endpoint configurado cae a simulación conservando el tipo pedido.
func (a *BridgeAdapter) Emit(ctx context.Context, docType entity.DocumentType, order *entity.Order, settings *entity.FiscalSettings) (*entity.FiscalResult, error) {
	endpoint := strings.TrimSpace(settings.EndpointFor(entity.FiscalMode(docType)))
	if endpoint == "" {
		a.logger.Info().Str("order_id", order.ID).Str("type", string(docType)).
			Msg("bridge: endpoint no configurado, se emite documento simulado")
		return a.sim.Emit(ctx, docType, order, settings)
	}

	now := a.now()
	docID := uuid.New().String()
	req := buildSaleRequest(docType, docID, order, settings)
	doc := &entity.FiscalDocument{
		ID:        docID,
		StoreID:   settings.StoreID,
		OrderID:   order.ID,
		Type:      docType,
		Status:    entity.DocumentStatusProcessing,
		Provider:  string(docType) + "-bridge",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := createWithLog(ctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: docID,
		Action:    entity.LogActionEmitRequest,
		Payload:   toMap(req),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("registrar documento %s: %w", docType, err)
	}

	log := a.logger.With().Str("document_id", docID).Str("order_id", order.ID).Str("type", string(docType)).Logger()

	resp, err := a.sender.Send(ctx, endpoint, req)
	if err != nil {
		return a.fail(ctx, doc, err, log), nil
	}

	doc.InvoiceNumber = resp.DeviceNumber()
	doc.RawResponse = rawFromSale(resp)
	if info, ok := xmlinfo.Extract(resp.XML); ok {
		doc.SefazProtocol = info.AccessKey
		if info.Protocol != "" {
			doc.SefazProtocol = info.Protocol
		}
	}
	msg := resp.Message
	if resp.Success {
		doc.Status = entity.DocumentStatusApproved
		if msg == "" {
			msg = "cupom emitido"
		}
	} else {
		doc.Status = entity.DocumentStatusRejected
		if msg == "" {
			msg = "cupom rechazado por el equipo fiscal"
		}
		doc.ErrorMessage = msg
	}
	doc.UpdatedAt = a.now()

	pctx, cancel := detached(ctx)
	defer cancel()
	if err := updateWithLog(pctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: docID,
		Action:    entity.LogActionEmitResponse,
		Response:  doc.RawResponse,
		CreatedAt: doc.UpdatedAt,
	}); err != nil {
		log.Error().Err(err).Msg("bridge: no se pudo persistir la respuesta del equipo")
	}
	log.Info().Bool("success", resp.Success).Str("number", doc.InvoiceNumber).Msg("bridge: respuesta del equipo")
	return entity.ResultFromDocument(doc, resp.Success, msg), nil
}

// fail deja el intento en error. El documento conserva el payload enviado en invoice_logs.
// La fila en error es la que este intento creó al registrarse; los intentos anteriores del pedido no se tocan.
func (a *BridgeAdapter) fail(ctx context.Context, doc *entity.FiscalDocument, cause error, log zerolog.Logger) *entity.FiscalResult {
	msg := "fallo de comunicación con el equipo fiscal"
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		msg = "tiempo de espera agotado con el equipo fiscal"
	}
	doc.Status = entity.DocumentStatusError
	doc.ErrorMessage = msg
	doc.RawResponse = map[string]any{entity.RawKeyMessage: cause.Error()}
	doc.UpdatedAt = a.now()

	pctx, cancel := detached(ctx)
	defer cancel()
	if err := updateWithLog(pctx, a.tx, doc, &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    entity.LogActionEmitError,
		Response:  doc.RawResponse,
		CreatedAt: doc.UpdatedAt,
	}); err != nil {
		log.Error().Err(err).Msg("bridge: no se pudo persistir el error")
	}
	log.Error().Err(cause).Msg("bridge: fallo de comunicación")
	return entity.ResultFromDocument(doc, false, msg)
}

// rawFromSale conserva la respuesta completa y garantiza las claves de reimpresión.
func rawFromSale(resp *bridge.SaleResponse) map[string]any {
	raw := make(map[string]any, len(resp.Raw)+2)
	for k, v := range resp.Raw {
		raw[k] = v
	}
	if resp.PrintData != "" {
		raw[entity.RawKeyPrintData] = resp.PrintData
	}
	if resp.XML != "" {
		raw[entity.RawKeyXML] = resp.XML
	}
	return raw
}

func buildSaleRequest(docType entity.DocumentType, docID string, order *entity.Order, settings *entity.FiscalSettings) bridge.SaleRequest {
	items := make([]bridge.SaleItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, bridge.SaleItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.PriceAtPurchase,
			Total:     it.Subtotal(),
			NCM:       it.NCM,
			CFOP:      it.CFOP,
			TaxClass:  taxClass(it.CFOP),
		})
	}
	return bridge.SaleRequest{
		Device:           string(docType),
		OrderID:          order.ID,
		DocumentID:       docID,
		CashierNumber:    settings.CashierNumber,
		TerminalNumber:   settings.CashierNumber,
		CustomerDocument: order.CustomerDocument,
		Items:            items,
		PaymentMethod:    order.PaymentMethod,
		Total:            order.TotalAmount,
	}
}

// taxClass clasificación para el equipo: F = substituição tributária (CFOP 5401-5405), T = tributado.
func taxClass(cfop string) string {
	switch cfop {
	case "5401", "5402", "5403", "5405":
		return "F"
	}
	return "T"
}
