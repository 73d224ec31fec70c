package repository

import (
	"context"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// FiscalSettingsRepository persistencia de fiscal_settings (una fila por tienda).
type FiscalSettingsRepository interface {
	// GetByStore devuelve nil, nil si la tienda aún no tiene configuración.
	GetByStore(ctx context.Context, storeID string) (*entity.FiscalSettings, error)
	// Upsert crea o reemplaza la configuración de la tienda (unique store_id).
	Upsert(ctx context.Context, settings *entity.FiscalSettings) error
}

// FiscalDocumentRepository persistencia de documentos fiscales (tabla invoices).
// Es el único escritor de esa tabla.
type FiscalDocumentRepository interface {
	Create(ctx context.Context, doc *entity.FiscalDocument) error
	// Update reescribe estado y datos devueltos por el backend de una sola fila.
	// Devuelve domain.ErrInvalidTransition si el estado persistido no admite el nuevo.
	Update(ctx context.Context, doc *entity.FiscalDocument) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	// ListByOrder devuelve los documentos del pedido del más nuevo al más viejo.
	ListByOrder(ctx context.Context, storeID, orderID string) ([]*entity.FiscalDocument, error)
}

// InvoiceLogRepository auditoría append-only de invoice_logs.
type InvoiceLogRepository interface {
	Append(ctx context.Context, log *entity.InvoiceLog) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.InvoiceLog, error)
}
