package entity

// FiscalResult respuesta uniforme de cualquier camino de emisión, independiente del backend.
// No se persiste como tal: es lo que recibe la UI.
type FiscalResult struct {
	Success       bool           `json:"success"`
	Status        DocumentStatus `json:"status"`
	DocumentID    string         `json:"document_id,omitempty"`
	ProviderID    string         `json:"provider_id,omitempty"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	Protocol      string         `json:"protocol,omitempty"`
	XMLURL        string         `json:"xml_url,omitempty"`
	PDFURL        string         `json:"pdf_url,omitempty"`
	Message       string         `json:"message,omitempty"`
	PrintData     string         `json:"print_data,omitempty"`
}

// FailedResult construye un resultado de error (success=false, status=error).
func FailedResult(msg string) *FiscalResult {
	return &FiscalResult{Success: false, Status: DocumentStatusError, Message: msg}
}

// ResultFromDocument copia los campos del documento persistido al resultado.
func ResultFromDocument(doc *FiscalDocument, success bool, msg string) *FiscalResult {
	res := &FiscalResult{
		Success:       success,
		Status:        doc.Status,
		DocumentID:    doc.ID,
		ProviderID:    doc.ProviderRef,
		InvoiceNumber: doc.InvoiceNumber,
		Protocol:      doc.SefazProtocol,
		XMLURL:        doc.XMLURL,
		PDFURL:        doc.PDFURL,
		Message:       msg,
	}
	if pd, ok := doc.PrintData(); ok {
		res.PrintData = pd
	}
	return res
}
