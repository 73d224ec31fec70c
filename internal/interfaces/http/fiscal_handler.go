package http

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/application/dto"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
)

// Puertos que consume el handler; los implementan los casos de uso de application/fiscal.
type (
	FiscalEmitter interface {
		Emit(ctx context.Context, storeID, orderID string) *entity.FiscalResult
	}
	SettingsService interface {
		GetSettings(ctx context.Context, storeID string) (*entity.FiscalSettings, error)
		SaveSettings(ctx context.Context, storeID string, req dto.SaveFiscalSettingsRequest) (*entity.FiscalSettings, error)
	}
	DocumentService interface {
		GetDocumentsByOrder(ctx context.Context, storeID, orderID string) (*dto.OrderDocumentsResponse, error)
		GetLogs(ctx context.Context, storeID, documentID string) ([]*entity.InvoiceLog, error)
		Overview(ctx context.Context, storeID, orderID string) (*dto.FiscalOverviewResponse, error)
	}
	ReprintService interface {
		GetPrintableContent(ctx context.Context, storeID, orderID string) (*entity.PrintableContent, error)
		RenderPDF(ctx context.Context, storeID, orderID string) ([]byte, string, error)
	}
	ProviderService interface {
		EmitWithProvider(ctx context.Context, storeID, orderID string) (*entity.FiscalResult, error)
		RefreshStatus(ctx context.Context, storeID, documentID string) (*entity.FiscalResult, error)
		Cancel(ctx context.Context, storeID, documentID, reason string) (*entity.FiscalResult, error)
	}
)

// FiscalHandler maneja las peticiones HTTP de emisión fiscal (protegido).
type FiscalHandler struct {
	emitter   FiscalEmitter
	settings  SettingsService
	documents DocumentService
	reprint   ReprintService
	providers ProviderService
	validate  *validator.Validate
	log       zerolog.Logger
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(emitter FiscalEmitter, settings SettingsService, documents DocumentService,
	reprint ReprintService, providers ProviderService, validate *validator.Validate, log zerolog.Logger) *FiscalHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &FiscalHandler{
		emitter:   emitter,
		settings:  settings,
		documents: documents,
		reprint:   reprint,
		providers: providers,
		validate:  validate,
		log:       log,
	}
}

// GetSettings godoc
// @Summary      Obtener configuración fiscal
// @Description  Devuelve la configuración fiscal de la tienda; si no existe se crea con modo none.
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.FiscalSettingsResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/fiscal/settings [get]
func (h *FiscalHandler) GetSettings(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	s, err := h.settings.GetSettings(c.Context(), storeID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToFiscalSettingsResponse(s))
}

// SaveSettings godoc
// @Summary      Guardar configuración fiscal
// @Tags         Fiscal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SaveFiscalSettingsRequest  true  "Configuración"
// @Success      200   {object}  dto.FiscalSettingsResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/fiscal/settings [put]
func (h *FiscalHandler) SaveSettings(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.SaveFiscalSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s, err := h.settings.SaveSettings(c.Context(), storeID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToFiscalSettingsResponse(s))
}

// Emit godoc
// @Summary      Emitir documento fiscal
// @Description  Emite el documento del pedido según el modo configurado. Siempre responde 200 con un resultado; success=false indica el fallo.
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        orderId  path      string  true  "ID del pedido"
// @Success      200      {object}  entity.FiscalResult
// @Failure      401      {object}  dto.ErrorResponse
// @Router       /api/fiscal/orders/{orderId}/emit [post]
func (h *FiscalHandler) Emit(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	orderID := c.Params("orderId")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "orderId requerido"})
	}
	return c.JSON(h.emitter.Emit(c.Context(), storeID, orderID))
}

// EmitWithProvider godoc
// @Summary      Emitir con proveedor configurable
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        orderId  path      string  true  "ID del pedido"
// @Success      200      {object}  entity.FiscalResult
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      501      {object}  dto.ErrorResponse
// @Router       /api/fiscal/orders/{orderId}/provider-emit [post]
func (h *FiscalHandler) EmitWithProvider(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	res, err := h.providers.EmitWithProvider(c.Context(), storeID, c.Params("orderId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// ListDocuments godoc
// @Summary      Documentos fiscales del pedido
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        orderId  path      string  true  "ID del pedido"
// @Success      200      {object}  dto.OrderDocumentsResponse
// @Router       /api/fiscal/orders/{orderId}/documents [get]
func (h *FiscalHandler) ListDocuments(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	out, err := h.documents.GetDocumentsByOrder(c.Context(), storeID, c.Params("orderId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Overview godoc
// @Summary      Configuración y documentos del pedido
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        orderId  path      string  true  "ID del pedido"
// @Success      200      {object}  dto.FiscalOverviewResponse
// @Router       /api/fiscal/orders/{orderId}/overview [get]
func (h *FiscalHandler) Overview(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	out, err := h.documents.Overview(c.Context(), storeID, c.Params("orderId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Reprint godoc
// @Summary      Contenido para reimpresión
// @Description  URL del PDF del proveedor o texto del cupom del documento activo del pedido.
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        orderId  path      string  true  "ID del pedido"
// @Success      200      {object}  entity.PrintableContent
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /api/fiscal/orders/{orderId}/reprint [get]
func (h *FiscalHandler) Reprint(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	content, err := h.reprint.GetPrintableContent(c.Context(), storeID, c.Params("orderId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(content)
}

// ReprintPDF godoc
// @Summary      Reimpresión en PDF
// @Tags         Fiscal
// @Security     Bearer
// @Produce      application/pdf
// @Param        orderId  path      string  true  "ID del pedido"
// @Success      200      {file}    binary
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /api/fiscal/orders/{orderId}/reprint/pdf [get]
func (h *FiscalHandler) ReprintPDF(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	pdf, filename, err := h.reprint.RenderPDF(c.Context(), storeID, c.Params("orderId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, filename))
	return c.Send(pdf)
}

// RefreshStatus godoc
// @Summary      Consultar estado en el proveedor
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {object}  entity.FiscalResult
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documents/{id}/refresh [post]
func (h *FiscalHandler) RefreshStatus(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	res, err := h.providers.RefreshStatus(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// Cancel godoc
// @Summary      Cancelar documento aprobado
// @Tags         Fiscal
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "ID del documento"
// @Param        body  body      dto.CancelDocumentRequest  true  "Justificativa"
// @Success      200   {object}  entity.FiscalResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/fiscal/documents/{id}/cancel [post]
func (h *FiscalHandler) Cancel(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CancelDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.validate.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "la justificativa debe tener entre 15 y 255 caracteres"})
	}
	res, err := h.providers.Cancel(c.Context(), storeID, c.Params("id"), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// Logs godoc
// @Summary      Auditoría del documento
// @Tags         Fiscal
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del documento"
// @Success      200  {array}   dto.InvoiceLogResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal/documents/{id}/logs [get]
func (h *FiscalHandler) Logs(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	logs, err := h.documents.GetLogs(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.InvoiceLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.ToInvoiceLogResponse(l))
	}
	return c.JSON(out)
}
