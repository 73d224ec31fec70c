package entity

// PrintableKind forma del contenido de reimpresión.
type PrintableKind string

const (
	PrintableURL  PrintableKind = "url"  // el caller abre la URL (DANFE de NF-e)
	PrintableText PrintableKind = "text" // cupón en texto plano
)

// PrintableContent contenido listo para reimprimir un documento.
type PrintableContent struct {
	Kind          PrintableKind `json:"kind"`
	URL           string        `json:"url,omitempty"`
	Text          string        `json:"text,omitempty"`
	DocumentID    string        `json:"document_id"`
	DocumentType  DocumentType  `json:"document_type"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	Regenerated   bool          `json:"regenerated"` // true si el texto se reconstruyó desde el pedido
}
