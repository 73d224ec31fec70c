package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/nfe"
)

// EmissionPayload lo que recibe un plug-in de proveedor para emitir.
type EmissionPayload struct {
	DocumentID string
	Order      *entity.Order
	Settings   *entity.FiscalSettings
}

// Provider contrato de un proveedor fiscal enchufable. Agregar una integración real
// es implementar esta interfaz y registrarla; el Dispatcher no cambia.
type Provider interface {
	ID() string
	Emit(ctx context.Context, payload EmissionPayload) (*entity.FiscalResult, error)
	GetStatus(ctx context.Context, providerRef string) (*entity.FiscalResult, error)
	Cancel(ctx context.Context, providerRef, reason string) (*entity.FiscalResult, error)
}

// ── Simulado ──────────────────────────────────────────────────────────────────

const simulatedRefPrefix = "sim-"

// SimulatedProvider proveedor sin estado: acepta toda nota, la aprueba al consultar
// el estado y la cancela cuando se pide.
type SimulatedProvider struct {
	now func() time.Time
}

// NewSimulatedProvider construye el proveedor simulado.
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{now: time.Now}
}

func (p *SimulatedProvider) ID() string { return entity.ProviderSimulated }

// Emit acepta la nota y devuelve una referencia propia en processing.
func (p *SimulatedProvider) Emit(_ context.Context, payload EmissionPayload) (*entity.FiscalResult, error) {
	if payload.Order == nil {
		return nil, fmt.Errorf("simulated: %w: pedido vacío", domain.ErrInvalidInput)
	}
	ref := simulatedRefPrefix + uuid.New().String()
	return &entity.FiscalResult{
		Success:       true,
		Status:        entity.DocumentStatusProcessing,
		ProviderID:    ref,
		InvoiceNumber: simulatedNumber(p.now()),
		Message:       "nota recibida por el proveedor simulado",
	}, nil
}

// GetStatus toda referencia emitida por este proveedor figura autorizada.
func (p *SimulatedProvider) GetStatus(_ context.Context, providerRef string) (*entity.FiscalResult, error) {
	if !strings.HasPrefix(providerRef, simulatedRefPrefix) {
		return nil, fmt.Errorf("simulated: referencia %q: %w", providerRef, domain.ErrNotFound)
	}
	return &entity.FiscalResult{
		Success:    true,
		Status:     entity.DocumentStatusApproved,
		ProviderID: providerRef,
		Protocol:   "SIM" + p.now().UTC().Format("20060102150405"),
		Message:    "autorizado (simulado)",
	}, nil
}

// Cancel cancela cualquier referencia emitida por este proveedor.
func (p *SimulatedProvider) Cancel(_ context.Context, providerRef, reason string) (*entity.FiscalResult, error) {
	if !strings.HasPrefix(providerRef, simulatedRefPrefix) {
		return nil, fmt.Errorf("simulated: referencia %q: %w", providerRef, domain.ErrNotFound)
	}
	return &entity.FiscalResult{
		Success:    true,
		Status:     entity.DocumentStatusCanceled,
		ProviderID: providerRef,
		Message:    "cancelado (simulado): " + reason,
	}, nil
}

// ── Integraciones pendientes ─────────────────────────────────────────────────

// pendingProvider proveedor reconocido cuya integración todavía no existe.
// Todas sus operaciones fallan con domain.ErrIntegrationNotImplemented.
type pendingProvider struct {
	id string
}

// NewPlugNotasProvider PlugNotas (integración pendiente).
func NewPlugNotasProvider() Provider { return pendingProvider{id: entity.ProviderPlugNotas} }

// NewNuvemFiscalProvider Nuvem Fiscal (integración pendiente).
func NewNuvemFiscalProvider() Provider { return pendingProvider{id: entity.ProviderNuvemFiscal} }

// NewNotaFacilProvider NotaFácil (integración pendiente).
func NewNotaFacilProvider() Provider { return pendingProvider{id: entity.ProviderNotaFacil} }

func (p pendingProvider) ID() string { return p.id }

func (p pendingProvider) Emit(context.Context, EmissionPayload) (*entity.FiscalResult, error) {
	return nil, p.notImplemented("emit")
}

func (p pendingProvider) GetStatus(context.Context, string) (*entity.FiscalResult, error) {
	return nil, p.notImplemented("getStatus")
}

func (p pendingProvider) Cancel(context.Context, string, string) (*entity.FiscalResult, error) {
	return nil, p.notImplemented("cancel")
}

func (p pendingProvider) notImplemented(op string) error {
	return fmt.Errorf("%s.%s: %w", p.id, op, domain.ErrIntegrationNotImplemented)
}

// ── API remota de NF-e ────────────────────────────────────────────────────────

// ProviderNameNFeAPI identifica los documentos emitidos por la API remota de NF-e. El adaptador NF-e
// lo usa como prefijo: "nfe-api" o "nfe-api:<nfe_provider>" (ej. "nfe-api:enotas").
const ProviderNameNFeAPI = "nfe-api"

// NFeAPIProvider expone la API remota de NF-e como plug-in para consultar y cancelar las notas
// que emitió el adaptador NF-e.
type NFeAPIProvider struct {
	remote nfe.Remote
}

// NewNFeAPIProvider construye el plug-in sobre el cliente de la API.
func NewNFeAPIProvider(remote nfe.Remote) *NFeAPIProvider {
	return &NFeAPIProvider{remote: remote}
}

func (p *NFeAPIProvider) ID() string { return ProviderNameNFeAPI }

// Emit envía la nota; la API la acepta para procesamiento (processing).
func (p *NFeAPIProvider) Emit(ctx context.Context, payload EmissionPayload) (*entity.FiscalResult, error) {
	res, err := p.remote.Issue(ctx, buildNFePayload(payload.DocumentID, payload.Order))
	if err != nil {
		return nil, err
	}
	out := remoteResult(res)
	out.Status = entity.DocumentStatusProcessing
	out.Success = true
	if out.InvoiceNumber == "" {
		out.InvoiceNumber = res.ID
	}
	return out, nil
}

// GetStatus traduce el estado informado por la API.
func (p *NFeAPIProvider) GetStatus(ctx context.Context, providerRef string) (*entity.FiscalResult, error) {
	res, err := p.remote.Status(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	return remoteResult(res), nil
}

// Cancel pide la cancelación; si la API no informa estado se asume cancelada.
func (p *NFeAPIProvider) Cancel(ctx context.Context, providerRef, reason string) (*entity.FiscalResult, error) {
	res, err := p.remote.Cancel(ctx, providerRef, reason)
	if err != nil {
		return nil, err
	}
	out := remoteResult(res)
	if res.Status == "" {
		out.Status = entity.DocumentStatusCanceled
		out.Success = true
	}
	return out, nil
}

func remoteResult(res *nfe.IssueResult) *entity.FiscalResult {
	status := remoteStatus(res.Status)
	return &entity.FiscalResult{
		Success:       status != entity.DocumentStatusRejected && status != entity.DocumentStatusError,
		Status:        status,
		ProviderID:    res.ID,
		InvoiceNumber: res.Number,
		Protocol:      res.Protocol,
		XMLURL:        res.XMLURL,
		PDFURL:        res.PDFURL,
		Message:       res.Message,
	}
}

// remoteStatus normaliza los estados de la API (inglés o portugués) al ciclo de vida del documento.
// Un estado desconocido se toma como todavía en proceso.
func remoteStatus(s string) entity.DocumentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authorized", "approved", "autorizada", "autorizado", "aprovada", "concluido":
		return entity.DocumentStatusApproved
	case "rejected", "denied", "rejeitada", "denegada", "erro", "error":
		return entity.DocumentStatusRejected
	case "canceled", "cancelled", "cancelada", "cancelado":
		return entity.DocumentStatusCanceled
	}
	return entity.DocumentStatusProcessing
}

// ── Registro ──────────────────────────────────────────────────────────────────

// ProviderRegistry resuelve el plug-in por su identificador.
type ProviderRegistry struct {
	providers map[string]Provider
}

// NewProviderRegistry registra los proveedores dados; un id repetido reemplaza al anterior.
func NewProviderRegistry(providers ...Provider) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

// DefaultProviderRegistry simulado más las integraciones pendientes.
func DefaultProviderRegistry() *ProviderRegistry {
	return NewProviderRegistry(
		NewSimulatedProvider(),
		NewPlugNotasProvider(),
		NewNuvemFiscalProvider(),
		NewNotaFacilProvider(),
	)
}

// Register agrega (o reemplaza) un proveedor.
func (r *ProviderRegistry) Register(p Provider) {
	r.providers[p.ID()] = p
}

// ForDocument resuelve el proveedor que emitió un documento a partir de su campo provider.
// Los documentos del adaptador NF-e van a la API remota sin importar el nfe_provider de la tienda.
func (r *ProviderRegistry) ForDocument(provider string) (Provider, error) {
	if provider == ProviderNameNFeAPI || strings.HasPrefix(provider, ProviderNameNFeAPI+":") {
		p, ok := r.providers[ProviderNameNFeAPI]
		if !ok {
			return nil, fmt.Errorf("%s: integración NF-e remota deshabilitada: %w", provider, domain.ErrIntegrationNotImplemented)
		}
		return p, nil
	}
	return r.Get(provider)
}

// Get devuelve el proveedor. Un id vacío es el simulado.
func (r *ProviderRegistry) Get(id string) (Provider, error) {
	if id == "" {
		id = entity.ProviderSimulated
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, id)
	}
	return p, nil
}
