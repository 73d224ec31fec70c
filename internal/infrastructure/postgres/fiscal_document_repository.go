package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo implementación de FiscalDocumentRepository sobre la tabla invoices.
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

const documentColumns = `
	id, store_id, order_id, type, status, provider,
	COALESCE(provider_ref, ''), COALESCE(invoice_number, ''), COALESCE(sefaz_protocol, ''),
	COALESCE(xml_url, ''), COALESCE(pdf_url, ''), raw_response, COALESCE(error_message, ''),
	created_at, updated_at`

// Create inserta un documento nuevo. Los reintentos siempre crean filas nuevas.
func (r *FiscalDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	raw, err := jsonbValue(doc.RawResponse)
	if err != nil {
		return fmt.Errorf("serializar raw_response: %w", err)
	}
	const query = `
		INSERT INTO invoices (id, store_id, order_id, type, status, provider, provider_ref,
		                      invoice_number, sefaz_protocol, xml_url, pdf_url, raw_response,
		                      error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.q.Exec(ctx, query,
		doc.ID, doc.StoreID, doc.OrderID, string(doc.Type), string(doc.Status), doc.Provider,
		nullIfEmpty(doc.ProviderRef), nullIfEmpty(doc.InvoiceNumber), nullIfEmpty(doc.SefazProtocol),
		nullIfEmpty(doc.XMLURL), nullIfEmpty(doc.PDFURL), raw,
		nullIfEmpty(doc.ErrorMessage), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert invoice: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update actualiza una fila solo si el estado persistido admite la transición al nuevo estado.
// La condición va en el WHERE para que dos escrituras concurrentes no pisen un estado terminal.
func (r *FiscalDocumentRepo) Update(ctx context.Context, doc *entity.FiscalDocument) error {
	raw, err := jsonbValue(doc.RawResponse)
	if err != nil {
		return fmt.Errorf("serializar raw_response: %w", err)
	}
	const query = `
		UPDATE invoices
		SET status         = $2,
		    provider_ref   = COALESCE($3, provider_ref),
		    invoice_number = COALESCE($4, invoice_number),
		    sefaz_protocol = COALESCE($5, sefaz_protocol),
		    xml_url        = COALESCE($6, xml_url),
		    pdf_url        = COALESCE($7, pdf_url),
		    raw_response   = COALESCE($8, raw_response),
		    error_message  = COALESCE($9, error_message),
		    updated_at     = $10
		WHERE id = $1 AND status = ANY($11)`
	tag, err := r.q.Exec(ctx, query,
		doc.ID, string(doc.Status),
		nullIfEmpty(doc.ProviderRef), nullIfEmpty(doc.InvoiceNumber), nullIfEmpty(doc.SefazProtocol),
		nullIfEmpty(doc.XMLURL), nullIfEmpty(doc.PDFURL), raw,
		nullIfEmpty(doc.ErrorMessage), doc.UpdatedAt,
		allowedFrom(doc.Status),
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, current.Status, doc.Status)
	}
	return nil
}

// GetByID obtiene un documento; nil, nil si no existe.
func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	row := r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM invoices WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return doc, nil
}

// ListByOrder lista los documentos del pedido del más nuevo al más viejo.
func (r *FiscalDocumentRepo) ListByOrder(ctx context.Context, storeID, orderID string) ([]*entity.FiscalDocument, error) {
	query := `SELECT ` + documentColumns + `
		FROM invoices
		WHERE store_id = $1 AND order_id = $2
		ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, storeID, orderID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var d entity.FiscalDocument
	var docType, status string
	var raw []byte
	err := row.Scan(
		&d.ID, &d.StoreID, &d.OrderID, &docType, &status, &d.Provider,
		&d.ProviderRef, &d.InvoiceNumber, &d.SefazProtocol,
		&d.XMLURL, &d.PDFURL, &raw, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Type = entity.DocumentType(docType)
	d.Status = entity.DocumentStatus(status)
	d.RawResponse = jsonbMap(raw)
	return &d, nil
}

var allStatuses = []entity.DocumentStatus{
	entity.DocumentStatusPending, entity.DocumentStatusProcessing, entity.DocumentStatusApproved,
	entity.DocumentStatusRejected, entity.DocumentStatusCanceled, entity.DocumentStatusSimulated,
	entity.DocumentStatusError,
}

// allowedFrom devuelve los estados desde los que se puede llegar a "to".
func allowedFrom(to entity.DocumentStatus) []string {
	out := make([]string, 0, len(allStatuses))
	for _, from := range allStatuses {
		if entity.CanTransition(from, to) {
			out = append(out, string(from))
		}
	}
	return out
}
