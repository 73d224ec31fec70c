// Package nfe implementa el cliente de la API remota de NF-e (proveedor acreditado).
// La firma y el XML oficial los genera el proveedor; el back-office envía un payload estructurado.
package nfe

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Customer destinatario de la nota.
type Customer struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Document string `json:"document,omitempty"` // CPF/CNPJ
	Address  string `json:"address,omitempty"`
}

// Item línea de la nota con sus códigos tributarios.
type Item struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	NCM         string          `json:"ncm"`
	CFOP        string          `json:"cfop"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

// Payment forma de pago (desglose).
type Payment struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// InvoicePayload payload de emisión.
type InvoicePayload struct {
	ExternalID string          `json:"externalId"` // id del documento fiscal local
	OrderID    string          `json:"orderId"`
	Customer   Customer        `json:"customer"`
	Items      []Item          `json:"items"`
	Payments   []Payment       `json:"payments"`
	Total      decimal.Decimal `json:"total"`
}

// IssueResult respuesta de la API sobre una nota: al aceptarla, al consultarla o al cancelarla.
// Protocol y las URLs solo vienen cuando la SEFAZ ya autorizó.
type IssueResult struct {
	ID       string         `json:"id"`
	Number   string         `json:"number,omitempty"`
	Status   string         `json:"status,omitempty"`
	Message  string         `json:"message,omitempty"`
	Protocol string         `json:"protocol,omitempty"`
	XMLURL   string         `json:"xmlUrl,omitempty"`
	PDFURL   string         `json:"pdfUrl,omitempty"`
	Raw      map[string]any `json:"-"`
}

// APIError respuesta HTTP no 2xx de la API. Message trae el texto del proveedor.
type APIError struct {
	StatusCode int
	Message    string
	Raw        map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nfe: HTTP %d: %s", e.StatusCode, e.Message)
}

// Issuer puerto de salida hacia la API remota. Los tests inyectan un fake.
type Issuer interface {
	Issue(ctx context.Context, payload InvoicePayload) (*IssueResult, error)
}

// Remote agrega la consulta y la cancelación de notas ya aceptadas.
type Remote interface {
	Issuer
	Status(ctx context.Context, id string) (*IssueResult, error)
	Cancel(ctx context.Context, id, reason string) (*IssueResult, error)
}
