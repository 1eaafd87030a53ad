// Package handler implements the HTTP handlers for the credential console.
// All handlers are methods on Server. Methods are split into area-specific
// files (console.go, control.go, gateway.go, etc.) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/repo"
)

// SearchServicer runs console and guard-booth lookups.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the store or service layer.
type SearchServicer interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
	Suspended(ctx context.Context) ([]domain.SearchResult, error)
	Control(ctx context.Context, key string) ([]domain.SearchResult, error)
}

// SuspensionServicer records misuse suspensions.
type SuspensionServicer interface {
	Suspend(ctx context.Context, req domain.SuspendRequest, rerun *domain.SearchQuery) (domain.SuspendOutcome, error)
}

// CredentialServicer assigns and deactivates credentials.
type CredentialServicer interface {
	ListAvailable(ctx context.Context) ([]string, error)
	LookupOwner(ctx context.Context, idsae int64) (domain.Owner, error)
	Assign(ctx context.Context, req domain.AssignRequest) (domain.Assignment, error)
	Deactivate(ctx context.Context, req domain.DeactivateRequest) (*domain.Receipt, error)
}

// PaymentServicer renews membership expirations.
type PaymentServicer interface {
	SearchOwners(ctx context.Context, name string) ([]domain.Owner, error)
	RegisterPayment(ctx context.Context, req domain.PaymentRequest) (domain.Owner, error)
}

// DocumentServicer issues and lists receipts.
type DocumentServicer interface {
	Issue(ctx context.Context, req domain.ReceiptRequest) (domain.Receipt, error)
	List(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error)
}

// StatusServicer checks the session against the store.
type StatusServicer interface {
	Check(ctx context.Context) (domain.ConsoleStatus, error)
}

// QueryExecutor runs gateway statements against the store.
type QueryExecutor interface {
	Query(ctx context.Context, query string, params ...any) ([]repo.Row, error)
}

// ObjectUploader stores uploaded documents.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Deps lists the services behind each route group. A nil dependency leaves
// its routes unmounted.
type Deps struct {
	Search      SearchServicer
	Suspensions SuspensionServicer
	Credentials CredentialServicer
	Payments    PaymentServicer
	Documents   DocumentServicer
	Status      StatusServicer
	Queries     QueryExecutor
	Uploads     ObjectUploader
	Log         *zap.Logger
}

// Server holds the handler dependencies.
type Server struct {
	Deps
	validate *validator.Validate
}

// NewServer constructs the Server with all its dependencies.
func NewServer(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{Deps: deps, validate: v}
}

// Routes mounts every API route on r. requireUser guards the routes that
// act on behalf of a signed-in operator.
func (s *Server) Routes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Get("/healthz", s.GetHealth)

	r.Route("/api", func(r chi.Router) {
		if s.Queries != nil {
			r.With(requireUser).Post("/query", s.PostQuery)
		}
		if s.Uploads != nil {
			r.Handle("/upload", s.uploadHandler(requireUser))
		}

		r.Route("/console", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/status", s.GetStatus)
			r.Get("/search", s.GetSearch)
			r.Get("/suspensions", s.GetSuspensions)
			r.Post("/suspensions", s.PostSuspension)
			r.Get("/owners", s.GetOwners)
			r.Get("/owners/{idsae}", s.GetOwner)
			r.Get("/tags/available", s.GetAvailableTags)
			r.Post("/assignments", s.PostAssignment)
			r.Post("/deactivations", s.PostDeactivation)
			r.Post("/payments", s.PostPayment)
			r.Get("/receipts", s.GetReceipts)
			r.Post("/receipts", s.PostReceipt)
		})

		r.Route("/control", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/lookup", s.GetControlLookup)
			r.Get("/suspensions", s.GetSuspensions)
		})
	})
}
