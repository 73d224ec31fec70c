package entity

import "time"

// Acciones registradas en invoice_logs.
const (
	LogActionEmitRequest    = "emit_request"
	LogActionEmitResponse   = "emit_response"
	LogActionEmitError      = "emit_error"
	LogActionStatusResponse = "status_response"
	LogActionCancel         = "cancel"
)

// InvoiceLog entrada de auditoría (append-only) de un documento fiscal.
type InvoiceLog struct {
	ID        string
	InvoiceID string
	Action    string
	Payload   map[string]any
	Response  map[string]any
	CreatedAt time.Time
}
