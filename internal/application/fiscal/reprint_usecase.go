package fiscal

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

// ReprintUseCase resuelve el contenido reimprimible del último documento válido del pedido.
// Solo lee: nunca crea documentos.
type ReprintUseCase struct {
	docs     repository.FiscalDocumentRepository
	orders   repository.OrderRepository
	settings repository.FiscalSettingsRepository
	renderer CouponRenderer
	logger   zerolog.Logger
}

// NewReprintUseCase construye el caso de uso. renderer puede ser nil si no se usa RenderPDF.
func NewReprintUseCase(
	docs repository.FiscalDocumentRepository,
	orders repository.OrderRepository,
	settings repository.FiscalSettingsRepository,
	renderer CouponRenderer,
	logger zerolog.Logger,
) *ReprintUseCase {
	return &ReprintUseCase{docs: docs, orders: orders, settings: settings, renderer: renderer, logger: logger}
}

// GetPrintableContent toma el documento approved o simulated más reciente:
//   - nfe con pdf_url → URL del DANFE
//   - con printData guardado → ese texto
//   - si no → texto reconstruido desde el pedido
func (uc *ReprintUseCase) GetPrintableContent(ctx context.Context, storeID, orderID string) (*entity.PrintableContent, error) {
	docs, err := uc.docs.ListByOrder(ctx, storeID, orderID)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	var doc *entity.FiscalDocument
	for _, d := range docs {
		if d.Status.IsPrintable() {
			doc = d
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("documento aprobado o simulado para el pedido %s: %w", orderID, domain.ErrNotFound)
	}

	content := &entity.PrintableContent{
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		InvoiceNumber: doc.InvoiceNumber,
	}
	if doc.Type == entity.DocumentTypeNFe && doc.PDFURL != "" {
		content.Kind = entity.PrintableURL
		content.URL = doc.PDFURL
		return content, nil
	}
	if text, ok := doc.PrintData(); ok {
		content.Kind = entity.PrintableText
		content.Text = text
		return content, nil
	}

	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("leer pedido: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
	}
	storeName := ""
	if s, err := uc.settings.GetByStore(ctx, storeID); err != nil {
		uc.logger.Warn().Err(err).Str("store_id", storeID).Msg("reprint: sin configuración, cupón sin nombre de tienda")
	} else if s != nil {
		storeName = s.StoreName
	}

	content.Kind = entity.PrintableText
	content.Text = RenderCouponText(storeName, doc.Type, doc.InvoiceNumber, order)
	content.Regenerated = true
	return content, nil
}

// RenderPDF genera el PDF del cupón. El contenido URL no se renderiza: el caller abre la URL.
func (uc *ReprintUseCase) RenderPDF(ctx context.Context, storeID, orderID string) ([]byte, string, error) {
	content, err := uc.GetPrintableContent(ctx, storeID, orderID)
	if err != nil {
		return nil, "", err
	}
	if content.Kind == entity.PrintableURL {
		return nil, "", fmt.Errorf("%w: el documento se imprime desde %s", domain.ErrInvalidInput, content.URL)
	}
	if uc.renderer == nil {
		return nil, "", fmt.Errorf("reprint: generador de PDF no configurado")
	}
	pdf, err := uc.renderer.RenderCoupon(ctx, content)
	if err != nil {
		return nil, "", err
	}
	name := content.InvoiceNumber
	if name == "" {
		name = content.DocumentID
	}
	filename := fmt.Sprintf("%s-%s.pdf", content.DocumentType, strings.ReplaceAll(name, "/", "-"))
	return pdf, filename, nil
}
