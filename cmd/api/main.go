package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/farmacia-fiscal-api/internal/application/dto"
	"github.com/jhoicas/farmacia-fiscal-api/internal/application/fiscal"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/bridge"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/lock"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/nfe"
	infrapdf "github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/pdf"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/farmacia-fiscal-api/internal/interfaces/http"
	"github.com/jhoicas/farmacia-fiscal-api/pkg/config"
	"github.com/jhoicas/farmacia-fiscal-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("nfe_remote", cfg.Fiscal.NFeRemoteEnabled).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	settingsRepo := postgres.NewFiscalSettingsRepository(pool)
	documentRepo := postgres.NewFiscalDocumentRepository(pool)
	logRepo := postgres.NewInvoiceLogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	fiscalCfg := fiscal.Config{
		NFeRemoteEnabled:  cfg.Fiscal.NFeRemoteEnabled,
		NFeSimulatedDelay: cfg.Fiscal.NFeSimulatedDelay,
		EmitTimeout:       cfg.Fiscal.EmitTimeout,
	}

	// API remota de NF-e: solo se construye si está habilitada; sin issuer el adaptador simula.
	// El mismo cliente se registra como plug-in para consultar y cancelar las notas emitidas.
	registry := fiscal.DefaultProviderRegistry()
	var issuer nfe.Issuer
	if cfg.Fiscal.NFeRemoteEnabled {
		client := nfe.NewClient(cfg.Fiscal.NFeAPIURL, nfe.Credentials{
			Token:    cfg.Fiscal.NFeAPIToken,
			User:     cfg.Fiscal.NFeAPIUser,
			Password: cfg.Fiscal.NFeAPIPassword,
		}, cfg.Fiscal.EmitTimeout)
		issuer = client
		registry.Register(fiscal.NewNFeAPIProvider(client))
	}

	// Lock por pedido en Redis. Sin REDIS_ADDR la emisión corre sin lock distribuido.
	var locker fiscal.OrderLocker = lock.NoopLocker{}
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no responde; el lock se intentará en cada emisión")
		}
		locker = lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, log.Component("lock"))
	}

	sim := fiscal.NewSimulationAdapter(txRunner, log.Component("simulation"))
	nfeAdapter := fiscal.NewNFeAdapter(txRunner, issuer, fiscalCfg, log.Component("nfe"))
	bridgeAdapter := fiscal.NewBridgeAdapter(txRunner, bridge.NewHTTPClient(cfg.Fiscal.BridgeTimeout), sim, log.Component("bridge"))
	dispatcher := fiscal.NewDispatcher(settingsRepo, orderRepo, txRunner, locker,
		nfeAdapter, bridgeAdapter, sim, fiscalCfg, log.Component("dispatcher"))

	validate := validator.New()
	settingsUC := fiscal.NewSettingsUseCase(settingsRepo, validate, log.Component("settings"))
	documentUC := fiscal.NewDocumentUseCase(settingsRepo, documentRepo, logRepo)
	reprintUC := fiscal.NewReprintUseCase(documentRepo, orderRepo, settingsRepo,
		infrapdf.NewMarotoCouponGenerator(), log.Component("reprint"))
	providerUC := fiscal.NewProviderUseCase(settingsRepo, orderRepo, documentRepo, txRunner,
		registry, log.Component("providers"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Fiscal.EmitTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Farmacia Fiscal API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{Status: "ok", Service: cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Dispatcher:     dispatcher,
		SettingsUC:     settingsUC,
		DocumentUC:     documentUC,
		ReprintUC:      reprintUC,
		ProviderUC:     providerUC,
		Validate:       validate,
		Logger:         log.Zerolog(),
		JWTSecret:      cfg.JWT.Secret,
		DefaultStoreID: cfg.Fiscal.DefaultStoreID,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
