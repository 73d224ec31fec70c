package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var _ Sender = (*HTTPClient)(nil)

// HTTPClient implementa Sender con net/http.
type HTTPClient struct {
	httpClient *http.Client
}

// NewHTTPClient construye el cliente. timeout acota cada llamada además del context del caller.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{httpClient: &http.Client{Timeout: timeout}}
}

// Send envía la venta al bridge y decodifica la respuesta.
func (c *HTTPClient) Send(ctx context.Context, endpoint string, sale SaleRequest) (*SaleResponse, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return nil, fmt.Errorf("bridge: serializar venta: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bridge: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("bridge: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("bridge: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(decodeCharset(resp), 2<<20)) // max 2 MB
	if err != nil {
		return nil, fmt.Errorf("bridge: leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bridge: HTTP %d: %s", resp.StatusCode, truncate(string(rawBody), 200))
	}
	return parseResponse(rawBody)
}

func parseResponse(rawBody []byte) (*SaleResponse, error) {
	var out SaleResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return nil, fmt.Errorf("bridge: respuesta no es JSON: %w", err)
	}
	if err := json.Unmarshal(rawBody, &out.Raw); err != nil {
		return nil, fmt.Errorf("bridge: respuesta no es un objeto JSON: %w", err)
	}
	return &out, nil
}

// decodeCharset convierte a UTF-8 los bridges que responden en Latin-1 (común en drivers SAT).
func decodeCharset(resp *http.Response) io.Reader {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return resp.Body
	}
	switch strings.ToLower(params["charset"]) {
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(resp.Body, charmap.ISO8859_1.NewDecoder())
	case "windows-1252", "cp1252":
		return transform.NewReader(resp.Body, charmap.Windows1252.NewDecoder())
	}
	return resp.Body
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
