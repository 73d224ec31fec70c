package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

var _ repository.InvoiceLogRepository = (*InvoiceLogRepo)(nil)

// InvoiceLogRepo auditoría append-only sobre invoice_logs.
type InvoiceLogRepo struct {
	q Querier
}

// NewInvoiceLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceLogRepository(q Querier) *InvoiceLogRepo {
	return &InvoiceLogRepo{q: q}
}

// Append inserta una entrada. Nunca se actualiza ni se borra.
func (r *InvoiceLogRepo) Append(ctx context.Context, l *entity.InvoiceLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	payload, err := jsonbValue(l.Payload)
	if err != nil {
		return fmt.Errorf("serializar payload: %w", err)
	}
	response, err := jsonbValue(l.Response)
	if err != nil {
		return fmt.Errorf("serializar response: %w", err)
	}
	const query = `
		INSERT INTO invoice_logs (id, invoice_id, action, payload, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.q.Exec(ctx, query, l.ID, l.InvoiceID, l.Action, payload, response, l.CreatedAt); err != nil {
		return fmt.Errorf("insert invoice log: %w", err)
	}
	return nil
}

// ListByInvoice devuelve la auditoría del documento en orden cronológico.
func (r *InvoiceLogRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.InvoiceLog, error) {
	const query = `
		SELECT id, invoice_id, action, payload, response, created_at
		FROM invoice_logs WHERE invoice_id = $1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice logs: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLog
	for rows.Next() {
		var l entity.InvoiceLog
		var payload, response []byte
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Action, &payload, &response, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice log: %w", err)
		}
		l.Payload = jsonbMap(payload)
		l.Response = jsonbMap(response)
		list = append(list, &l)
	}
	return list, rows.Err()
}
