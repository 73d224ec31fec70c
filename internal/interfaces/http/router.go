package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Dispatcher     FiscalEmitter
	SettingsUC     SettingsService
	DocumentUC     DocumentService
	ReprintUC      ReprintService
	ProviderUC     ProviderService
	Validate       *validator.Validate
	Logger         zerolog.Logger
	JWTSecret      string
	DefaultStoreID string
}

// Roles con permiso para cambiar la configuración o cancelar documentos.
var managerRoles = []string{"admin", "farmaceutico"}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.DefaultStoreID))

	h := NewFiscalHandler(deps.Dispatcher, deps.SettingsUC, deps.DocumentUC, deps.ReprintUC, deps.ProviderUC,
		deps.Validate, deps.Logger.With().Str("component", "http").Logger())

	fiscal := protected.Group("/fiscal")
	fiscal.Get("/settings", h.GetSettings)
	fiscal.Put("/settings", RequireRole(managerRoles...), h.SaveSettings)

	// Pedidos
	orders := fiscal.Group("/orders/:orderId")
	orders.Post("/emit", h.Emit)
	orders.Post("/provider-emit", h.EmitWithProvider)
	orders.Get("/documents", h.ListDocuments)
	orders.Get("/overview", h.Overview)
	orders.Get("/reprint", h.Reprint)
	orders.Get("/reprint/pdf", h.ReprintPDF)

	// Documentos
	docs := fiscal.Group("/documents/:id")
	docs.Post("/refresh", h.RefreshStatus)
	docs.Post("/cancel", RequireRole(managerRoles...), h.Cancel)
	docs.Get("/logs", h.Logs)
}
