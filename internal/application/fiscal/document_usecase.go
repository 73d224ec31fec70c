package fiscal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/farmacia-fiscal-api/internal/application/dto"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

// DocumentUseCase consultas de documentos fiscales y su auditoría.
type DocumentUseCase struct {
	settings repository.FiscalSettingsRepository
	docs     repository.FiscalDocumentRepository
	logs     repository.InvoiceLogRepository
	now      func() time.Time
}

// NewDocumentUseCase construye el caso de uso.
func NewDocumentUseCase(
	settings repository.FiscalSettingsRepository,
	docs repository.FiscalDocumentRepository,
	logs repository.InvoiceLogRepository,
) *DocumentUseCase {
	return &DocumentUseCase{settings: settings, docs: docs, logs: logs, now: time.Now}
}

// GetDocumentsByOrder documentos del pedido del más nuevo al más viejo, con el activo marcado.
func (uc *DocumentUseCase) GetDocumentsByOrder(ctx context.Context, storeID, orderID string) (*dto.OrderDocumentsResponse, error) {
	docs, err := uc.docs.ListByOrder(ctx, storeID, orderID)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	return toOrderDocuments(orderID, docs), nil
}

// GetLogs auditoría de un documento en orden cronológico.
func (uc *DocumentUseCase) GetLogs(ctx context.Context, storeID, documentID string) ([]*entity.InvoiceLog, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("leer documento: %w", err)
	}
	if doc == nil || doc.StoreID != storeID {
		return nil, fmt.Errorf("documento %s: %w", documentID, domain.ErrNotFound)
	}
	return uc.logs.ListByInvoice(ctx, documentID)
}

// Overview configuración y documentos del pedido. Las dos lecturas son independientes
// y se hacen en paralelo. No crea la configuración si falta: devuelve la de por defecto.
func (uc *DocumentUseCase) Overview(ctx context.Context, storeID, orderID string) (*dto.FiscalOverviewResponse, error) {
	var (
		settings *entity.FiscalSettings
		docs     []*entity.FiscalDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := uc.settings.GetByStore(gctx, storeID)
		if err != nil {
			return fmt.Errorf("leer configuración fiscal: %w", err)
		}
		settings = s
		return nil
	})
	g.Go(func() error {
		d, err := uc.docs.ListByOrder(gctx, storeID, orderID)
		if err != nil {
			return fmt.Errorf("listar documentos: %w", err)
		}
		docs = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = entity.NewDefaultFiscalSettings("", storeID, uc.now())
	}
	return &dto.FiscalOverviewResponse{
		Settings:               dto.ToFiscalSettingsResponse(settings),
		OrderDocumentsResponse: *toOrderDocuments(orderID, docs),
	}, nil
}

func toOrderDocuments(orderID string, docs []*entity.FiscalDocument) *dto.OrderDocumentsResponse {
	out := &dto.OrderDocumentsResponse{
		OrderID:   orderID,
		Documents: make([]dto.FiscalDocumentResponse, 0, len(docs)),
	}
	for _, d := range docs {
		out.Documents = append(out.Documents, dto.ToFiscalDocumentResponse(d))
	}
	if active := entity.ActiveDocument(docs); active != nil {
		out.ActiveDocumentID = active.ID
	}
	return out
}
