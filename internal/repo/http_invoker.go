package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkordes/tagconsole/internal/auth"
	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/metrics"
)

// QueryRequest is the wire body accepted by the query gateway.
type QueryRequest struct {
	Query  string `json:"query"`
	Params []any  `json:"params"`
}

// QueryError is the wire body the gateway returns on failure.
type QueryError struct {
	Error string `json:"error"`
}

// HTTPInvoker posts statements to a remote query gateway, forwarding the
// caller's session token as a bearer credential.
type HTTPInvoker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPInvoker constructs an HTTPInvoker for endpoint. A nil client means
// http.DefaultClient; no timeout is applied beyond the caller's context.
func NewHTTPInvoker(endpoint string, client *http.Client) *HTTPInvoker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPInvoker{endpoint: endpoint, client: client}
}

// Query sends one statement and decodes either a row array or {error}.
func (h *HTTPInvoker) Query(ctx context.Context, query string, params ...any) ([]Row, error) {
	token, ok := auth.TokenFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoSession
	}

	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(QueryRequest{Query: query, Params: params})
	if err != nil {
		return nil, fmt.Errorf("repo.HTTPInvoker.Query: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("repo.HTTPInvoker.Query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.client.Do(req)
	if err != nil {
		metrics.ObserveQuery("http", err)
		return nil, &domain.RemoteExecutionError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveQuery("http", err)
		return nil, &domain.RemoteExecutionError{Message: err.Error(), Err: err}
	}

	rows, err := decodeQueryResponse(resp.StatusCode, raw)
	metrics.ObserveQuery("http", err)
	return rows, err
}

// decodeQueryResponse accepts a JSON array of rows on success. Anything
// else becomes a RemoteExecutionError, using the {error} message when the
// gateway sent one.
func decodeQueryResponse(status int, raw []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(raw)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var qe QueryError
		if err := json.Unmarshal(trimmed, &qe); err == nil && qe.Error != "" {
			return nil, &domain.RemoteExecutionError{Message: qe.Error}
		}
	}
	if status < 200 || status > 299 {
		return nil, &domain.RemoteExecutionError{Message: fmt.Sprintf("gateway returned %d %s", status, http.StatusText(status))}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, &domain.RemoteExecutionError{Message: "malformed gateway response: " + err.Error(), Err: err}
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}
