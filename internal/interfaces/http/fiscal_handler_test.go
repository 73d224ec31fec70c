package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-fiscal-api/internal/application/dto"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain"
	"github.com/jhoicas/farmacia-fiscal-api/internal/domain/entity"
	apphttp "github.com/jhoicas/farmacia-fiscal-api/internal/interfaces/http"
)

// ═══════════════════════════════════════════════════════════════════════════════
// Fakes
// ═══════════════════════════════════════════════════════════════════════════════

type fakeEmitter struct {
	gotStore, gotOrder string
	result             *entity.FiscalResult
}

func (f *fakeEmitter) Emit(_ context.Context, storeID, orderID string) *entity.FiscalResult {
	f.gotStore, f.gotOrder = storeID, orderID
	return f.result
}

type fakeSettings struct {
	saved   *dto.SaveFiscalSettingsRequest
	saveErr error
}

func (f *fakeSettings) GetSettings(_ context.Context, storeID string) (*entity.FiscalSettings, error) {
	return &entity.FiscalSettings{ID: "set-1", StoreID: storeID, Mode: entity.FiscalModeNone,
		NFeProvider: entity.NFeProviderNone, ProviderID: entity.ProviderSimulated}, nil
}

func (f *fakeSettings) SaveSettings(_ context.Context, storeID string, req dto.SaveFiscalSettingsRequest) (*entity.FiscalSettings, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = &req
	return &entity.FiscalSettings{ID: "set-1", StoreID: storeID, Mode: entity.FiscalMode(req.Mode), ProviderID: entity.ProviderSimulated}, nil
}

type fakeDocuments struct {
	logsErr error
}

func (f *fakeDocuments) GetDocumentsByOrder(_ context.Context, _, orderID string) (*dto.OrderDocumentsResponse, error) {
	return &dto.OrderDocumentsResponse{OrderID: orderID, Documents: []dto.FiscalDocumentResponse{}}, nil
}

func (f *fakeDocuments) GetLogs(_ context.Context, _, documentID string) ([]*entity.InvoiceLog, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return []*entity.InvoiceLog{{ID: "log-1", InvoiceID: documentID, Action: "emit", CreatedAt: time.Now()}}, nil
}

func (f *fakeDocuments) Overview(_ context.Context, storeID, orderID string) (*dto.FiscalOverviewResponse, error) {
	return &dto.FiscalOverviewResponse{
		Settings:               dto.FiscalSettingsResponse{StoreID: storeID, Mode: "none"},
		OrderDocumentsResponse: dto.OrderDocumentsResponse{OrderID: orderID, Documents: []dto.FiscalDocumentResponse{}},
	}, nil
}

type fakeReprint struct {
	content *entity.PrintableContent
	err     error
}

func (f *fakeReprint) GetPrintableContent(context.Context, string, string) (*entity.PrintableContent, error) {
	return f.content, f.err
}

func (f *fakeReprint) RenderPDF(context.Context, string, string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("%PDF-1.4 fake"), "sat-000123.pdf", nil
}

type fakeProviders struct {
	err        error
	cancelled  string
	cancelCall int
}

func (f *fakeProviders) EmitWithProvider(context.Context, string, string) (*entity.FiscalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.FiscalResult{Success: true, Status: entity.DocumentStatusProcessing, DocumentID: "doc-1"}, nil
}

func (f *fakeProviders) RefreshStatus(_ context.Context, _, documentID string) (*entity.FiscalResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.FiscalResult{Success: true, Status: entity.DocumentStatusApproved, DocumentID: documentID}, nil
}

func (f *fakeProviders) Cancel(_ context.Context, _, documentID, reason string) (*entity.FiscalResult, error) {
	f.cancelCall++
	if f.err != nil {
		return nil, f.err
	}
	f.cancelled = reason
	return &entity.FiscalResult{Success: true, Status: entity.DocumentStatusCanceled, DocumentID: documentID}, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// Harness
// ═══════════════════════════════════════════════════════════════════════════════

type handlerHarness struct {
	app       *fiber.App
	emitter   *fakeEmitter
	settings  *fakeSettings
	documents *fakeDocuments
	reprint   *fakeReprint
	providers *fakeProviders
}

func newHandlerHarness() *handlerHarness {
	h := &handlerHarness{
		emitter:   &fakeEmitter{result: &entity.FiscalResult{Success: true, Status: entity.DocumentStatusSimulated, DocumentID: "doc-1"}},
		settings:  &fakeSettings{},
		documents: &fakeDocuments{},
		reprint:   &fakeReprint{},
		providers: &fakeProviders{},
	}
	h.app = fiber.New()
	apphttp.Router(h.app, apphttp.RouterDeps{
		Dispatcher:     h.emitter,
		SettingsUC:     h.settings,
		DocumentUC:     h.documents,
		ReprintUC:      h.reprint,
		ProviderUC:     h.providers,
		Validate:       validator.New(),
		Logger:         zerolog.Nop(),
		JWTSecret:      testJWTSecret,
		DefaultStoreID: testDefaultStore,
	})
	return h
}

func (h *handlerHarness) do(t *testing.T, method, path, role, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

// ═══════════════════════════════════════════════════════════════════════════════
// Emisión
// ═══════════════════════════════════════════════════════════════════════════════

func TestEmit_DevuelveResultadoConTiendaDelToken(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPost, "/api/fiscal/orders/ord-9/emit", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testStoreID, h.emitter.gotStore)
	assert.Equal(t, "ord-9", h.emitter.gotOrder)

	var res entity.FiscalResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success)
	assert.Equal(t, entity.DocumentStatusSimulated, res.Status)
}

func TestEmit_FalloDeNegocioSigueSiendo200(t *testing.T) {
	h := newHandlerHarness()
	h.emitter.result = entity.FailedResult("emisión fiscal deshabilitada para la tienda")

	resp := h.do(t, http.MethodPost, "/api/fiscal/orders/ord-9/emit", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res entity.FiscalResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestEmit_SinToken_Retorna401(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPost, "/api/fiscal/orders/ord-9/emit", "", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, h.emitter.gotOrder)
}

func TestEmitWithProvider_IntegracionPendiente_Retorna501(t *testing.T) {
	h := newHandlerHarness()
	h.providers.err = fmt.Errorf("plugnotas emit: %w", domain.ErrIntegrationNotImplemented)

	resp := h.do(t, http.MethodPost, "/api/fiscal/orders/ord-9/provider-emit", "caja", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "INTEGRATION_NOT_IMPLEMENTED", decodeError(t, resp).Code)
}

func TestEmitWithProvider_ProveedorDesconocido_Retorna400(t *testing.T) {
	h := newHandlerHarness()
	h.providers.err = fmt.Errorf("%w: acme", domain.ErrUnknownProvider)

	resp := h.do(t, http.MethodPost, "/api/fiscal/orders/ord-9/provider-emit", "caja", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_PROVIDER", decodeError(t, resp).Code)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Configuración
// ═══════════════════════════════════════════════════════════════════════════════

func TestGetSettings_OK(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodGet, "/api/fiscal/settings", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s dto.FiscalSettingsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, testStoreID, s.StoreID)
	assert.Equal(t, "none", s.Mode)
}

func TestSaveSettings_CajaNoPuede(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPut, "/api/fiscal/settings", "caja", `{"mode":"sat"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Nil(t, h.settings.saved)
}

func TestSaveSettings_Admin(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPut, "/api/fiscal/settings", "admin",
		`{"mode":"sat","sat_endpoint_url":"http://192.168.0.10:8080/sat"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, h.settings.saved)
	assert.Equal(t, "http://192.168.0.10:8080/sat", h.settings.saved.SATEndpointURL)
}

func TestSaveSettings_Invalida_Retorna400(t *testing.T) {
	h := newHandlerHarness()
	h.settings.saveErr = fmt.Errorf("%w: mode debe ser uno de none nfe sat ecf simulated", domain.ErrInvalidInput)

	resp := h.do(t, http.MethodPut, "/api/fiscal/settings", "admin", `{"mode":"fax"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
}

func TestSaveSettings_CuerpoInvalido_Retorna400(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPut, "/api/fiscal/settings", "admin", `{mode:`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Code)
}

// ═══════════════════════════════════════════════════════════════════════════════
// Consulta y reimpresión
// ═══════════════════════════════════════════════════════════════════════════════

func TestOverview_OK(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodGet, "/api/fiscal/orders/ord-9/overview", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ord-9", body["order_id"], "los documentos van embebidos al nivel raíz")
	assert.Contains(t, body, "settings")
}

func TestListDocuments_OK(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodGet, "/api/fiscal/orders/ord-9/documents", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.OrderDocumentsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ord-9", out.OrderID)
}

func TestReprint_SinDocumento_Retorna404(t *testing.T) {
	h := newHandlerHarness()
	h.reprint.err = fmt.Errorf("documento imprimible: %w", domain.ErrNotFound)

	resp := h.do(t, http.MethodGet, "/api/fiscal/orders/ord-9/reprint", "caja", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReprint_Texto(t *testing.T) {
	h := newHandlerHarness()
	h.reprint.content = &entity.PrintableContent{Kind: entity.PrintableText, Text: "CUPOM FISCAL", DocumentID: "doc-1"}

	resp := h.do(t, http.MethodGet, "/api/fiscal/orders/ord-9/reprint", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pc entity.PrintableContent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pc))
	assert.Equal(t, "CUPOM FISCAL", pc.Text)
}

func TestReprintPDF_Cabeceras(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodGet, "/api/fiscal/orders/ord-9/reprint/pdf", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="sat-000123.pdf"`)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "%PDF"))
}

// ═══════════════════════════════════════════════════════════════════════════════
// Documentos
// ═══════════════════════════════════════════════════════════════════════════════

func TestRefresh_SinReferencia_Retorna409(t *testing.T) {
	h := newHandlerHarness()
	h.providers.err = fmt.Errorf("documento sin referencia del proveedor: %w", domain.ErrConflict)

	resp := h.do(t, http.MethodPost, "/api/fiscal/documents/doc-1/refresh", "caja", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancel_JustificativaCorta_NoLlamaAlProveedor(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPost, "/api/fiscal/documents/doc-1/cancel", "admin", `{"reason":"corta"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, resp).Code)
	assert.Zero(t, h.providers.cancelCall)
}

func TestCancel_OK(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodPost, "/api/fiscal/documents/doc-1/cancel", "farmaceutico", `{"reason":"cliente desistiu da compra"}`)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cliente desistiu da compra", h.providers.cancelled)
}

func TestCancel_TransicionInvalida_Retorna409(t *testing.T) {
	h := newHandlerHarness()
	h.providers.err = fmt.Errorf("%w: processing → canceled", domain.ErrInvalidTransition)

	resp := h.do(t, http.MethodPost, "/api/fiscal/documents/doc-1/cancel", "admin", `{"reason":"cliente desistiu da compra"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, resp).Code)
}

func TestLogs_OK(t *testing.T) {
	h := newHandlerHarness()
	resp := h.do(t, http.MethodGet, "/api/fiscal/documents/doc-1/logs", "caja", "")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logs []dto.InvoiceLogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "emit", logs[0].Action)
}

func TestLogs_ErrorInterno_NoExponeDetalle(t *testing.T) {
	h := newHandlerHarness()
	h.documents.logsErr = errors.New("pq: relation invoice_logs does not exist")

	resp := h.do(t, http.MethodGet, "/api/fiscal/documents/doc-1/logs", "caja", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	e := decodeError(t, resp)
	assert.Equal(t, "INTERNAL", e.Code)
	assert.NotContains(t, e.Message, "invoice_logs")
}
