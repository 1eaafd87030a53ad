package service_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/repo"
)

// Hand-written doubles for the repo interfaces. Each method is a function
// field; a test sets only the ones it expects to be called, so an
// unexpected call panics on the nil field.

type mockSearchRepo struct {
	byID         func(ctx context.Context, idsae int64) ([]domain.SearchResult, error)
	byName       func(ctx context.Context, name string) ([]domain.SearchResult, error)
	byCredential func(ctx context.Context, key string, exact bool) ([]domain.SearchResult, error)
}

func (m *mockSearchRepo) ByID(ctx context.Context, idsae int64) ([]domain.SearchResult, error) {
	return m.byID(ctx, idsae)
}
func (m *mockSearchRepo) ByName(ctx context.Context, name string) ([]domain.SearchResult, error) {
	return m.byName(ctx, name)
}
func (m *mockSearchRepo) ByCredential(ctx context.Context, key string, exact bool) ([]domain.SearchResult, error) {
	return m.byCredential(ctx, key, exact)
}

var _ repo.SearchRepo = (*mockSearchRepo)(nil)

type mockSuspensionRepo struct {
	list          func(ctx context.Context) ([]domain.SuspensionEntry, error)
	insert        func(ctx context.Context, e domain.SuspensionEntry) (domain.SuspensionEntry, error)
	listSuspended func(ctx context.Context) ([]domain.SearchResult, error)
}

func (m *mockSuspensionRepo) List(ctx context.Context) ([]domain.SuspensionEntry, error) {
	return m.list(ctx)
}
func (m *mockSuspensionRepo) Insert(ctx context.Context, e domain.SuspensionEntry) (domain.SuspensionEntry, error) {
	return m.insert(ctx, e)
}
func (m *mockSuspensionRepo) ListSuspended(ctx context.Context) ([]domain.SearchResult, error) {
	return m.listSuspended(ctx)
}

var _ repo.SuspensionRepo = (*mockSuspensionRepo)(nil)

type mockAssociationRepo struct {
	getOwner        func(ctx context.Context, idsae int64) (domain.Owner, error)
	searchOwners    func(ctx context.Context, name string) ([]domain.Owner, error)
	setValidity     func(ctx context.Context, idsae int64, flag domain.ValidityFlag) error
	renewExpiration func(ctx context.Context, idsae int64, expiration string) error
	ping            func(ctx context.Context) error
}

func (m *mockAssociationRepo) GetOwner(ctx context.Context, idsae int64) (domain.Owner, error) {
	return m.getOwner(ctx, idsae)
}
func (m *mockAssociationRepo) SearchOwners(ctx context.Context, name string) ([]domain.Owner, error) {
	return m.searchOwners(ctx, name)
}
func (m *mockAssociationRepo) SetValidity(ctx context.Context, idsae int64, flag domain.ValidityFlag) error {
	return m.setValidity(ctx, idsae, flag)
}
func (m *mockAssociationRepo) RenewExpiration(ctx context.Context, idsae int64, expiration string) error {
	return m.renewExpiration(ctx, idsae, expiration)
}
func (m *mockAssociationRepo) Ping(ctx context.Context) error {
	return m.ping(ctx)
}

var _ repo.AssociationRepo = (*mockAssociationRepo)(nil)

type mockCredentialRepo struct {
	listAvailable   func(ctx context.Context) ([]string, error)
	activeHolders   func(ctx context.Context, kind domain.CredentialKind, key string, idsae int64) ([]int64, error)
	assignPooledTag func(ctx context.Context, idsae int64, code string) (domain.Credential, error)
	insertApp       func(ctx context.Context, idsae int64, identifier string) (domain.Credential, error)
	deactivate      func(ctx context.Context, idsae int64, kind domain.CredentialKind, key string) error
}

func (m *mockCredentialRepo) ListAvailable(ctx context.Context) ([]string, error) {
	return m.listAvailable(ctx)
}
func (m *mockCredentialRepo) ActiveHolders(ctx context.Context, kind domain.CredentialKind, key string, idsae int64) ([]int64, error) {
	return m.activeHolders(ctx, kind, key, idsae)
}
func (m *mockCredentialRepo) AssignPooledTag(ctx context.Context, idsae int64, code string) (domain.Credential, error) {
	return m.assignPooledTag(ctx, idsae, code)
}
func (m *mockCredentialRepo) InsertApp(ctx context.Context, idsae int64, identifier string) (domain.Credential, error) {
	return m.insertApp(ctx, idsae, identifier)
}
func (m *mockCredentialRepo) Deactivate(ctx context.Context, idsae int64, kind domain.CredentialKind, key string) error {
	return m.deactivate(ctx, idsae, kind, key)
}

var _ repo.CredentialRepo = (*mockCredentialRepo)(nil)

type mockReceiptRepo struct {
	attach func(ctx context.Context, req domain.ReceiptRequest, url string) error
	list   func(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error)
}

func (m *mockReceiptRepo) AttachDocument(ctx context.Context, req domain.ReceiptRequest, url string) error {
	return m.attach(ctx, req, url)
}
func (m *mockReceiptRepo) List(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error) {
	return m.list(ctx, kind, p)
}

var _ repo.ReceiptRepo = (*mockReceiptRepo)(nil)

// ---- helpers ---------------------------------------------------------------

// fixedNow is 2025-06-15 noon in UTC.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// registry returns a suspension repo whose List serves entries.
func registry(entries ...domain.SuspensionEntry) *mockSuspensionRepo {
	return &mockSuspensionRepo{
		list: func(context.Context) ([]domain.SuspensionEntry, error) { return entries, nil },
	}
}

func member(idsae int64, expiration string, flag domain.ValidityFlag, cred *domain.Credential) domain.SearchResult {
	return domain.SearchResult{
		Kind: domain.ResultNormal,
		Owner: domain.Association{
			IDSAE:      idsae,
			Name:       "Juan Pérez",
			Expiration: expiration,
			Validity:   flag,
		},
		Credential: cred,
	}
}

func tag(code string) *domain.Credential {
	return &domain.Credential{Kind: domain.KindTag, Code: code, Active: true}
}
