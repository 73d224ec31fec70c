package fiscal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con los repos de documentos y auditoría.
// Un documento y su entrada de invoice_logs se escriben juntos o no se escriben.
type TxRunner interface {
	RunFiscal(ctx context.Context, fn func(
		docs repository.FiscalDocumentRepository,
		logs repository.InvoiceLogRepository,
	) error) error
}

// OrderLocker serializa emisiones del mismo pedido. Devuelve domain.ErrEmissionInProgress
// si otra emisión tiene el lock.
type OrderLocker interface {
	Lock(ctx context.Context, storeID, orderID string) (release func(), err error)
}

// CouponRenderer genera el PDF de un contenido de texto reimprimible.
type CouponRenderer interface {
	RenderCoupon(ctx context.Context, content *entity.PrintableContent) ([]byte, error)
}

// Config parámetros de emisión leídos de la configuración del servicio.
type Config struct {
	NFeRemoteEnabled  bool
	NFeSimulatedDelay time.Duration
	EmitTimeout       time.Duration // tope de una emisión completa, independiente del caller
}

// persistTimeout tope para escribir el resultado de un intento cuando el contexto del request ya venció.
const persistTimeout = 5 * time.Second

// detached devuelve un contexto que sobrevive a la cancelación de ctx. Se usa para dejar
// el documento en estado terminal aunque el caller haya abandonado la espera.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// updateWithLog actualiza el documento y agrega la entrada de auditoría en una transacción.
func updateWithLog(ctx context.Context, tx TxRunner, doc *entity.FiscalDocument, entry *entity.InvoiceLog) error {
	return tx.RunFiscal(ctx, func(docs repository.FiscalDocumentRepository, logs repository.InvoiceLogRepository) error {
		if err := docs.Update(ctx, doc); err != nil {
			return err
		}
		return logs.Append(ctx, entry)
	})
}

// createWithLog crea el documento y su primera entrada de auditoría en una transacción.
func createWithLog(ctx context.Context, tx TxRunner, doc *entity.FiscalDocument, entry *entity.InvoiceLog) error {
	return tx.RunFiscal(ctx, func(docs repository.FiscalDocumentRepository, logs repository.InvoiceLogRepository) error {
		if err := docs.Create(ctx, doc); err != nil {
			return err
		}
		return logs.Append(ctx, entry)
	})
}

// toMap convierte un payload a mapa para guardarlo en JSONB.
func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"raw": string(b)}
	}
	return m
}
