package bridge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/farmacia-fiscal-api/internal/infrastructure/bridge"
)

func sampleSale() bridge.SaleRequest {
	return bridge.SaleRequest{
		Device:  "sat",
		OrderID: "ord-1",
		Items: []bridge.SaleItem{{
			ProductID: "p1", Name: "Dipirona 500mg", Quantity: 1,
			UnitPrice: decimal.RequireFromString("45.90"), Total: decimal.RequireFromString("45.90"), TaxClass: "T",
		}},
		PaymentMethod: "pix",
		Total:         decimal.RequireFromString("45.90"),
	}
}

func TestSend_Aprobado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var got bridge.SaleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "ord-1", got.OrderID)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("45.90")))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"satNumber":"000123","printData":"CUPOM FISCAL","vendor":"tanca"}`))
	}))
	defer srv.Close()

	resp, err := bridge.NewHTTPClient(2*time.Second).Send(context.Background(), srv.URL, sampleSale())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "000123", resp.DeviceNumber())
	assert.Equal(t, "CUPOM FISCAL", resp.PrintData)
	assert.Equal(t, "tanca", resp.Raw["vendor"], "los campos desconocidos se conservan en Raw")
}

func TestSend_Latin1(t *testing.T) {
	body, err := charmap.ISO8859_1.NewEncoder().String(`{"success":true,"ecfNumber":"77","printData":"FARMÁCIA SÃO JOÃO"}`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=ISO-8859-1")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	resp, err := bridge.NewHTTPClient(2*time.Second).Send(context.Background(), srv.URL, sampleSale())
	require.NoError(t, err)
	assert.Equal(t, "FARMÁCIA SÃO JOÃO", resp.PrintData)
	assert.Equal(t, "77", resp.DeviceNumber())
}

func TestSend_HTTPNo2xx_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "impresora sin papel", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := bridge.NewHTTPClient(2*time.Second).Send(context.Background(), srv.URL, sampleSale())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSend_Timeout_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := bridge.NewHTTPClient(5*time.Second).Send(ctx, srv.URL, sampleSale())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSend_RespuestaNoJSON_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	_, err := bridge.NewHTTPClient(2*time.Second).Send(context.Background(), srv.URL, sampleSale())
	assert.Error(t, err)
}
