package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/repository"
)

// emitFunc un brazo de la tabla de despacho. Devuelve error solo cuando ningún documento
// refleja el fallo; en ese caso el Dispatcher intenta registrar uno en error.
type emitFunc func(ctx context.Context, order *entity.Order, settings *entity.FiscalSettings) (*entity.FiscalResult, error)

// Mensajes de resultado visibles en la UI.
const (
	msgDisabled      = "emisión fiscal deshabilitada para la tienda"
	msgUnknownMode   = "modo fiscal desconocido"
	msgInProgress    = "emisión en curso para el pedido, intente nuevamente en unos segundos"
	msgSettingsError = "no se pudo leer la configuración fiscal"
	msgOrderError    = "no se pudo leer el pedido"
	msgTimeout       = "tiempo de espera agotado al emitir el documento fiscal"
	msgInternal      = "error interno al emitir el documento fiscal"
)

// Dispatcher punto de entrada de la emisión: elige el backend según el modo de la tienda.
//
//	configuración → pedido → lock (opcional) → adaptador → FiscalResult
//
// Nunca devuelve un error Go: toda falla se convierte en un FiscalResult con success=false.
type Dispatcher struct {
	settings repository.FiscalSettingsRepository
	orders   repository.OrderRepository
	tx       TxRunner
	locker   OrderLocker
	routes   map[entity.FiscalMode]emitFunc
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDispatcher construye el dispatcher con su tabla de despacho. locker puede ser nil (sin lock por pedido).
func NewDispatcher(
	settings repository.FiscalSettingsRepository,
	orders repository.OrderRepository,
	tx TxRunner,
	locker OrderLocker,
	nfeAdapter *NFeAdapter,
	bridgeAdapter *BridgeAdapter,
	sim *SimulationAdapter,
	cfg Config,
	logger zerolog.Logger,
) *Dispatcher {
	d := &Dispatcher{
		settings: settings,
		orders:   orders,
		tx:       tx,
		locker:   locker,
		timeout:  cfg.EmitTimeout,
		logger:   logger,
		now:      time.Now,
	}
	d.routes = map[entity.FiscalMode]emitFunc{
		entity.FiscalModeNFe: nfeAdapter.Emit,
		entity.FiscalModeSAT: func(ctx context.Context, o *entity.Order, s *entity.FiscalSettings) (*entity.FiscalResult, error) {
			return bridgeAdapter.Emit(ctx, entity.DocumentTypeSAT, o, s)
		},
		entity.FiscalModeECF: func(ctx context.Context, o *entity.Order, s *entity.FiscalSettings) (*entity.FiscalResult, error) {
			return bridgeAdapter.Emit(ctx, entity.DocumentTypeECF, o, s)
		},
		entity.FiscalModeSimulated: func(ctx context.Context, o *entity.Order, s *entity.FiscalSettings) (*entity.FiscalResult, error) {
			return sim.Emit(ctx, entity.DocumentTypeSimulated, o, s)
		},
	}
	return d
}

// Emit emite el documento fiscal del pedido según la configuración de la tienda.
func (d *Dispatcher) Emit(ctx context.Context, storeID, orderID string) (result *entity.FiscalResult) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	log := d.logger.With().Str("store_id", storeID).Str("order_id", orderID).Logger()

	var (
		settings *entity.FiscalSettings
		order    *entity.Order
		err      error
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("dispatcher: panic en el adaptador")
			if settings != nil && order != nil {
				d.recordError(ctx, settings, order, msgInternal, log)
			}
			result = entity.FailedResult(msgInternal)
		}
	}()

	settings, err = d.settings.GetByStore(ctx, storeID)
	if err != nil {
		log.Error().Err(err).Msg("dispatcher: leer configuración fiscal")
		return entity.FailedResult(msgSettingsError)
	}
	if settings == nil || settings.Mode == entity.FiscalModeNone {
		return entity.FailedResult(msgDisabled)
	}

	order, err = d.orders.GetByID(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Msg("dispatcher: leer pedido")
		return entity.FailedResult(msgOrderError)
	}
	if order == nil || (order.StoreID != "" && order.StoreID != storeID) {
		return entity.FailedResult(fmt.Sprintf("pedido %s no encontrado", orderID))
	}

	emit, ok := d.routes[settings.Mode]
	if !ok {
		log.Warn().Str("mode", string(settings.Mode)).Msg("dispatcher: modo fiscal desconocido")
		return entity.FailedResult(fmt.Sprintf("%s: %s", msgUnknownMode, settings.Mode))
	}

	if d.locker != nil {
		release, err := d.locker.Lock(ctx, storeID, orderID)
		switch {
		case errors.Is(err, domain.ErrEmissionInProgress):
			return entity.FailedResult(msgInProgress)
		case err != nil:
			// Sin Redis la emisión sigue sin lock: es el comportamiento por defecto.
			log.Warn().Err(err).Msg("dispatcher: lock no disponible, se emite sin lock")
		default:
			defer release()
		}
	}

	res, err := emit(ctx, order, settings)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = msgTimeout
		}
		log.Error().Err(err).Str("mode", string(settings.Mode)).Msg("dispatcher: fallo del adaptador")
		d.recordError(ctx, settings, order, msg, log)
		return entity.FailedResult(msg)
	}
	log.Info().Str("mode", string(settings.Mode)).Bool("success", res.Success).
		Str("status", string(res.Status)).Str("document_id", res.DocumentID).Msg("dispatcher: emisión terminada")
	return res
}

// recordError intenta dejar constancia del intento fallido como documento en error.
func (d *Dispatcher) recordError(ctx context.Context, settings *entity.FiscalSettings, order *entity.Order, msg string, log zerolog.Logger) {
	pctx, cancel := detached(ctx)
	defer cancel()

	now := d.now()
	doc := &entity.FiscalDocument{
		ID:           uuid.New().String(),
		StoreID:      settings.StoreID,
		OrderID:      order.ID,
		Type:         documentTypeFor(settings.Mode),
		Status:       entity.DocumentStatusError,
		Provider:     string(settings.Mode),
		ErrorMessage: msg,
		RawResponse:  map[string]any{entity.RawKeyMessage: msg},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := createWithLog(pctx, d.tx, doc, &entity.InvoiceLog{
		InvoiceID: doc.ID,
		Action:    entity.LogActionEmitError,
		Response:  doc.RawResponse,
		CreatedAt: now,
	})
	if err != nil {
		log.Error().Err(err).Msg("dispatcher: no se pudo registrar el documento en error")
	}
}

func documentTypeFor(mode entity.FiscalMode) entity.DocumentType {
	switch mode {
	case entity.FiscalModeNFe:
		return entity.DocumentTypeNFe
	case entity.FiscalModeSAT:
		return entity.DocumentTypeSAT
	case entity.FiscalModeECF:
		return entity.DocumentTypeECF
	default:
		return entity.DocumentTypeSimulated
	}
}
