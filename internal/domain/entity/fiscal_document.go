package entity

import "time"

// DocumentType tipo de documento fiscal emitido.
type DocumentType string

const (
	DocumentTypeNFe       DocumentType = "nfe"
	DocumentTypeSAT       DocumentType = "sat"
	DocumentTypeECF       DocumentType = "ecf"
	DocumentTypeSimulated DocumentType = "simulated"
)

// DocumentStatus estado de un documento fiscal.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"    // integración remota deshabilitada
	DocumentStatusProcessing DocumentStatus = "processing" // enviado, esperando respuesta
	DocumentStatusApproved   DocumentStatus = "approved"
	DocumentStatusRejected   DocumentStatus = "rejected"
	DocumentStatusCanceled   DocumentStatus = "canceled"
	DocumentStatusSimulated  DocumentStatus = "simulated"
	DocumentStatusError      DocumentStatus = "error"
)

// Claves conocidas de RawResponse. Cualquier otra clave es específica del proveedor.
const (
	RawKeyPrintData = "printData"
	RawKeyXML       = "xml"
	RawKeyResponse  = "response"
	RawKeyMessage   = "message"
)

// FiscalDocument registro de un intento de emisión. Un pedido puede tener varios:
// cada reintento crea una fila nueva.
type FiscalDocument struct {
	ID            string
	StoreID       string
	OrderID       string
	Type          DocumentType
	Status        DocumentStatus
	Provider      string // backend usado: nfe-api, sat-bridge, ecf-bridge, simulated, plugnotas...
	ProviderRef   string // id remoto para consultar estado o cancelar
	InvoiceNumber string
	SefazProtocol string
	XMLURL        string
	PDFURL        string
	RawResponse   map[string]any // payload opaco del backend, leído de forma defensiva
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PrintData devuelve el texto imprimible guardado en RawResponse, si existe y no está vacío.
func (d *FiscalDocument) PrintData() (string, bool) {
	return d.rawString(RawKeyPrintData)
}

// RawXML devuelve el XML devuelto por el backend, si existe.
func (d *FiscalDocument) RawXML() (string, bool) {
	return d.rawString(RawKeyXML)
}

func (d *FiscalDocument) rawString(key string) (string, bool) {
	if d == nil || d.RawResponse == nil {
		return "", false
	}
	s, ok := d.RawResponse[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// IsTerminal indica si el estado ya no admite transiciones (salvo approved → canceled).
func (s DocumentStatus) IsTerminal() bool {
	switch s {
	case DocumentStatusApproved, DocumentStatusRejected, DocumentStatusCanceled,
		DocumentStatusSimulated, DocumentStatusError:
		return true
	}
	return false
}

// IsPrintable indica si el estado permite reimpresión.
func (s DocumentStatus) IsPrintable() bool {
	return s == DocumentStatusApproved || s == DocumentStatusSimulated
}

// CanTransition valida la máquina de estados:
//
//	pending|processing → approved | rejected | error
//	approved           → canceled
//
// "simulated" nace terminal. Un documento puede quedarse en su mismo estado (actualización de datos).
func CanTransition(from, to DocumentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case DocumentStatusPending, DocumentStatusProcessing:
		switch to {
		case DocumentStatusApproved, DocumentStatusRejected, DocumentStatusError:
			return true
		}
		// pending → processing: el proveedor aceptó el documento y sigue procesándolo.
		return from == DocumentStatusPending && to == DocumentStatusProcessing
	case DocumentStatusApproved:
		return to == DocumentStatusCanceled
	}
	return false
}

// ActiveDocument elige el documento "activo" de una lista ordenada de más nuevo a más viejo:
// el primero con estado approved, processing, simulated o pending; si ninguno califica, el primero.
// Devuelve nil si la lista está vacía.
func ActiveDocument(docs []*FiscalDocument) *FiscalDocument {
	if len(docs) == 0 {
		return nil
	}
	for _, d := range docs {
		switch d.Status {
		case DocumentStatusApproved, DocumentStatusProcessing, DocumentStatusSimulated, DocumentStatusPending:
			return d
		}
	}
	return docs[0]
}
