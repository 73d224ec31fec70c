package nfe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var _ Remote = (*Client)(nil)

// Credentials autenticación de la API: bearer tiene prioridad sobre basic.
type Credentials struct {
	Token    string
	User     string
	Password string
}

// Client cliente HTTP de la API de NF-e.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// NewClient construye el cliente. baseURL sin barra final (ej: https://api.proveedor.com/v2).
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Issue envía la nota para emisión. La API responde de forma asíncrona: un 2xx significa
// "aceptada para procesamiento", no autorizada por la SEFAZ.
func (c *Client) Issue(ctx context.Context, payload InvoicePayload) (*IssueResult, error) {
	return c.do(ctx, http.MethodPost, "/nfe", payload)
}

// Status consulta el estado actual de la nota.
func (c *Client) Status(ctx context.Context, id string) (*IssueResult, error) {
	return c.do(ctx, http.MethodGet, "/nfe/"+url.PathEscape(id), nil)
}

// Cancel pide la cancelación de una nota autorizada con su justificativa.
func (c *Client) Cancel(ctx context.Context, id, reason string) (*IssueResult, error) {
	return c.do(ctx, http.MethodPost, "/nfe/"+url.PathEscape(id)+"/cancel", map[string]string{"reason": reason})
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*IssueResult, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("nfe: serializar payload: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("nfe: crear request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("nfe: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("nfe: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("nfe: leer respuesta: %w", err)
	}
	raw := map[string]any{}
	_ = json.Unmarshal(rawBody, &raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, rawBody, resp.Status), Raw: raw}
	}

	var out IssueResult
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return nil, fmt.Errorf("nfe: respuesta no es JSON: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("nfe: respuesta sin id de nota")
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.creds.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	case c.creds.User != "":
		req.SetBasicAuth(c.creds.User, c.creds.Password)
	}
}

// errorMessage busca el mensaje del proveedor en los formatos habituales.
func errorMessage(raw map[string]any, body []byte, status string) string {
	for _, k := range []string{"message", "error", "mensagem"} {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	if errObj, ok := raw["error"].(map[string]any); ok {
		if s, ok := errObj["message"].(string); ok && s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 300 {
		return s
	}
	return status
}
