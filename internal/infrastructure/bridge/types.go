// Package bridge implementa el cliente HTTP hacia el bridge local que maneja el hardware
// SAT/ECF de la tienda. El esquema exacto lo define el fabricante; aquí solo se usan
// los campos que el back-office necesita.
package bridge

import (
	"context"

	"github.com/shopspring/decimal"
)

// SaleItem línea del cupón con su clasificación tributaria.
type SaleItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
	NCM       string          `json:"ncm,omitempty"`
	CFOP      string          `json:"cfop,omitempty"`
	TaxClass  string          `json:"taxClass"` // T=tributado, F=substituição tributária, I=isento
}

// SaleRequest venta enviada al bridge.
type SaleRequest struct {
	Device           string          `json:"device"` // "sat" | "ecf"
	OrderID          string          `json:"orderId"`
	DocumentID       string          `json:"documentId"`
	CashierNumber    string          `json:"cashierNumber,omitempty"`
	TerminalNumber   string          `json:"terminalNumber,omitempty"`
	CustomerDocument string          `json:"customerDocument,omitempty"`
	Items            []SaleItem      `json:"items"`
	PaymentMethod    string          `json:"paymentMethod"`
	Total            decimal.Decimal `json:"total"`
}

// SaleResponse respuesta del bridge. Raw conserva el JSON completo para auditoría y reimpresión.
type SaleResponse struct {
	Success   bool   `json:"success"`
	SATNumber string `json:"satNumber,omitempty"`
	ECFNumber string `json:"ecfNumber,omitempty"`
	XML       string `json:"xml,omitempty"`
	PrintData string `json:"printData,omitempty"`
	Message   string `json:"message,omitempty"`

	Raw map[string]any `json:"-"`
}

// DeviceNumber devuelve el número asignado por el equipo (SAT o ECF).
func (r *SaleResponse) DeviceNumber() string {
	if r.SATNumber != "" {
		return r.SATNumber
	}
	return r.ECFNumber
}

// Sender puerto de salida hacia el bridge. Los tests inyectan un fake.
type Sender interface {
	// Send hace POST de la venta al endpoint configurado en la tienda.
	// Un error significa fallo de comunicación (red, timeout, HTTP no 2xx, cuerpo ilegible);
	// un rechazo del equipo llega como SaleResponse.Success == false.
	Send(ctx context.Context, endpoint string, req SaleRequest) (*SaleResponse, error)
}
