package dto

import (
	"time"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// SaveFiscalSettingsRequest body para PUT /api/fiscal/settings.
type SaveFiscalSettingsRequest struct {
	Mode           string `json:"mode" validate:"required,oneof=none nfe sat ecf simulated"`
	SATEndpointURL string `json:"sat_endpoint_url,omitempty" validate:"omitempty,http_url,max=500"`
	ECFEndpointURL string `json:"ecf_endpoint_url,omitempty" validate:"omitempty,http_url,max=500"`
	NFeProvider    string `json:"nfe_provider,omitempty" validate:"omitempty,oneof=none enotas plugnotas nuvemfiscal"`
	ProviderID     string `json:"provider_id,omitempty" validate:"omitempty,oneof=simulated plugnotas nuvemfiscal notafacil"`
	StoreName      string `json:"store_name,omitempty" validate:"max=120"`
	CashierNumber  string `json:"cashier_number,omitempty" validate:"max=20"`
}

// FiscalSettingsResponse configuración fiscal en respuestas.
type FiscalSettingsResponse struct {
	ID             string    `json:"id"`
	StoreID        string    `json:"store_id"`
	Mode           string    `json:"mode"`
	SATEndpointURL string    `json:"sat_endpoint_url,omitempty"`
	ECFEndpointURL string    `json:"ecf_endpoint_url,omitempty"`
	NFeProvider    string    `json:"nfe_provider"`
	ProviderID     string    `json:"provider_id"`
	StoreName      string    `json:"store_name,omitempty"`
	CashierNumber  string    `json:"cashier_number,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// FiscalDocumentResponse documento fiscal en respuestas.
type FiscalDocumentResponse struct {
	ID            string         `json:"id"`
	OrderID       string         `json:"order_id"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	Provider      string         `json:"provider"`
	ProviderRef   string         `json:"provider_ref,omitempty"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	SefazProtocol string         `json:"sefaz_protocol,omitempty"`
	XMLURL        string         `json:"xml_url,omitempty"`
	PDFURL        string         `json:"pdf_url,omitempty"`
	RawResponse   map[string]any `json:"raw_response,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// OrderDocumentsResponse documentos de un pedido (más nuevo primero) y el documento activo.
type OrderDocumentsResponse struct {
	OrderID          string                   `json:"order_id"`
	ActiveDocumentID string                   `json:"active_document_id,omitempty"`
	Documents        []FiscalDocumentResponse `json:"documents"`
}

// FiscalOverviewResponse configuración y documentos de un pedido en una sola llamada (pantalla de emisión).
type FiscalOverviewResponse struct {
	Settings FiscalSettingsResponse `json:"settings"`
	OrderDocumentsResponse
}

// InvoiceLogResponse entrada de auditoría.
type InvoiceLogResponse struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	Response  map[string]any `json:"response,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CancelDocumentRequest body para POST /api/fiscal/documents/:id/cancel.
type CancelDocumentRequest struct {
	Reason string `json:"reason" validate:"required,min=15,max=255"` // la SEFAZ exige justificativa de 15+ caracteres
}

// ToFiscalSettingsResponse mapea la entidad.
func ToFiscalSettingsResponse(s *entity.FiscalSettings) FiscalSettingsResponse {
	return FiscalSettingsResponse{
		ID:             s.ID,
		StoreID:        s.StoreID,
		Mode:           string(s.Mode),
		SATEndpointURL: s.SATEndpointURL,
		ECFEndpointURL: s.ECFEndpointURL,
		NFeProvider:    string(s.NFeProvider),
		ProviderID:     s.ProviderID,
		StoreName:      s.StoreName,
		CashierNumber:  s.CashierNumber,
		LastUpdated:    s.LastUpdated,
	}
}

// ToFiscalDocumentResponse mapea la entidad.
func ToFiscalDocumentResponse(d *entity.FiscalDocument) FiscalDocumentResponse {
	return FiscalDocumentResponse{
		ID:            d.ID,
		OrderID:       d.OrderID,
		Type:          string(d.Type),
		Status:        string(d.Status),
		Provider:      d.Provider,
		ProviderRef:   d.ProviderRef,
		InvoiceNumber: d.InvoiceNumber,
		SefazProtocol: d.SefazProtocol,
		XMLURL:        d.XMLURL,
		PDFURL:        d.PDFURL,
		RawResponse:   d.RawResponse,
		ErrorMessage:  d.ErrorMessage,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ToInvoiceLogResponse mapea la entidad.
func ToInvoiceLogResponse(l *entity.InvoiceLog) InvoiceLogResponse {
	return InvoiceLogResponse{
		ID:        l.ID,
		Action:    l.Action,
		Payload:   l.Payload,
		Response:  l.Response,
		CreatedAt: l.CreatedAt,
	}
}
