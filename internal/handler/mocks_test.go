package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/internal/auth"
	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/handler"
	"github.com/pkordes/tagconsole/internal/repo"
)

// Test doubles for the handler's consumer interfaces. Set only the method
// fields your test needs.

type mockSearch struct {
	search    func(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
	suspended func(ctx context.Context) ([]domain.SearchResult, error)
	control   func(ctx context.Context, key string) ([]domain.SearchResult, error)
}

func (m *mockSearch) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	return m.search(ctx, q)
}
func (m *mockSearch) Suspended(ctx context.Context) ([]domain.SearchResult, error) {
	return m.suspended(ctx)
}
func (m *mockSearch) Control(ctx context.Context, key string) ([]domain.SearchResult, error) {
	return m.control(ctx, key)
}

var _ handler.SearchServicer = (*mockSearch)(nil)

type mockSuspensions struct {
	suspend func(ctx context.Context, req domain.SuspendRequest, rerun *domain.SearchQuery) (domain.SuspendOutcome, error)
}

func (m *mockSuspensions) Suspend(ctx context.Context, req domain.SuspendRequest, rerun *domain.SearchQuery) (domain.SuspendOutcome, error) {
	return m.suspend(ctx, req, rerun)
}

var _ handler.SuspensionServicer = (*mockSuspensions)(nil)

type mockCredentials struct {
	listAvailable func(ctx context.Context) ([]string, error)
	lookupOwner   func(ctx context.Context, idsae int64) (domain.Owner, error)
	assign        func(ctx context.Context, req domain.AssignRequest) (domain.Assignment, error)
	deactivate    func(ctx context.Context, req domain.DeactivateRequest) (*domain.Receipt, error)
}

func (m *mockCredentials) ListAvailable(ctx context.Context) ([]string, error) {
	return m.listAvailable(ctx)
}
func (m *mockCredentials) LookupOwner(ctx context.Context, idsae int64) (domain.Owner, error) {
	return m.lookupOwner(ctx, idsae)
}
func (m *mockCredentials) Assign(ctx context.Context, req domain.AssignRequest) (domain.Assignment, error) {
	return m.assign(ctx, req)
}
func (m *mockCredentials) Deactivate(ctx context.Context, req domain.DeactivateRequest) (*domain.Receipt, error) {
	return m.deactivate(ctx, req)
}

var _ handler.CredentialServicer = (*mockCredentials)(nil)

type mockPayments struct {
	searchOwners    func(ctx context.Context, name string) ([]domain.Owner, error)
	registerPayment func(ctx context.Context, req domain.PaymentRequest) (domain.Owner, error)
}

func (m *mockPayments) SearchOwners(ctx context.Context, name string) ([]domain.Owner, error) {
	return m.searchOwners(ctx, name)
}
func (m *mockPayments) RegisterPayment(ctx context.Context, req domain.PaymentRequest) (domain.Owner, error) {
	return m.registerPayment(ctx, req)
}

var _ handler.PaymentServicer = (*mockPayments)(nil)

type mockDocuments struct {
	issue func(ctx context.Context, req domain.ReceiptRequest) (domain.Receipt, error)
	list  func(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error)
}

func (m *mockDocuments) Issue(ctx context.Context, req domain.ReceiptRequest) (domain.Receipt, error) {
	return m.issue(ctx, req)
}
func (m *mockDocuments) List(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error) {
	return m.list(ctx, kind, p)
}

var _ handler.DocumentServicer = (*mockDocuments)(nil)

type mockStatus struct {
	check func(ctx context.Context) (domain.ConsoleStatus, error)
}

func (m *mockStatus) Check(ctx context.Context) (domain.ConsoleStatus, error) {
	return m.check(ctx)
}

type mockQueries struct {
	query func(ctx context.Context, q string, params ...any) ([]repo.Row, error)
}

func (m *mockQueries) Query(ctx context.Context, q string, params ...any) ([]repo.Row, error) {
	return m.query(ctx, q, params...)
}

type mockUploads struct {
	upload func(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

func (m *mockUploads) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	return m.upload(ctx, key, body, contentType)
}

// ---- helpers ---------------------------------------------------------------

const operatorToken = "operator-token"

// testVerifier accepts operatorToken only.
func testVerifier(_ context.Context, token string) (map[string]any, error) {
	if token != operatorToken {
		return nil, errors.New("bad token")
	}
	return map[string]any{"sub": "op-1", "email": "caseta@example.com"}, nil
}

// newHTTPHandler wires a Server into a chi router behind the same auth
// middleware main.go uses.
func newHTTPHandler(deps handler.Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.JWT(testVerifier, auth.DefaultCredentialExtractor))
	handler.NewServer(deps).Routes(r, auth.RequireUser)
	return r
}

// do sends an authenticated request; body is JSON-encoded unless nil.
func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Authorization", "Bearer "+operatorToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// errorBody is the console error shape.
type errorBody struct {
	Error handler.ErrorDetail `json:"error"`
}

// pngDataURL is a 1x1 transparent PNG.
const pngDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func juanRow() domain.SearchResult {
	return domain.SearchResult{
		Kind: domain.ResultNormal,
		Owner: domain.Association{
			IDSAE:      100,
			Name:       "Juan Pérez",
			Address:    domain.Address{Street: "Av. Central", Exterior: "12"},
			Expiration: "31/12/2030",
			Validity:   domain.Valid,
		},
		Credential: &domain.Credential{ID: 7, IDSAE: 100, Kind: domain.KindTag, Code: "ABC1234", Active: true},
	}
}
