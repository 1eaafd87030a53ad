package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/metrics"
	"github.com/pkordes/tagconsole/internal/repo"
)

// Renderer lays out a receipt as a PDF.
type Renderer interface {
	Render(req domain.ReceiptRequest) ([]byte, error)
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// DocumentService produces issuance and cancellation receipts: render,
// upload, then record the URL on the credential row.
type DocumentService struct {
	renderer Renderer
	uploader Uploader
	receipts repo.ReceiptRepo
	log      *zap.Logger
	now      func() time.Time
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(renderer Renderer, uploader Uploader, receipts repo.ReceiptRepo, log *zap.Logger) *DocumentService {
	return &DocumentService{renderer: renderer, uploader: uploader, receipts: receipts, log: log, now: time.Now}
}

// Issue produces the document for req. Input problems are returned as
// domain.ErrValidation; every later failure is a
// *domain.DocumentGenerationError naming the stage that failed.
func (s *DocumentService) Issue(ctx context.Context, req domain.ReceiptRequest) (domain.Receipt, error) {
	if err := req.Validate(); err != nil {
		return domain.Receipt{}, err
	}
	if req.Folio == uuid.Nil {
		req.Folio = uuid.New()
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}

	log := logging.FromContext(ctx, s.log).With(
		zap.Stringer("folio", req.Folio),
		zap.String("receipt_kind", string(req.Kind)),
		zap.Int64("idsae", req.Owner.IDSAE),
	)

	receipt, err := s.issue(ctx, req)
	metrics.ObserveDocument(req.Kind, err)
	if err != nil {
		log.Error("receipt generation failed", zap.Error(err))
		return domain.Receipt{}, err
	}
	log.Info("receipt stored", zap.String("url", receipt.URL))
	return receipt, nil
}

func (s *DocumentService) issue(ctx context.Context, req domain.ReceiptRequest) (domain.Receipt, error) {
	pdf, err := s.renderer.Render(req)
	if err != nil {
		return domain.Receipt{}, &domain.DocumentGenerationError{Stage: "render", Err: err}
	}

	key := req.ObjectKey()
	url, err := s.uploader.Upload(ctx, key, pdf, "application/pdf")
	if err != nil {
		return domain.Receipt{}, &domain.DocumentGenerationError{Stage: "upload", Err: err}
	}

	if err := s.receipts.AttachDocument(ctx, req, url); err != nil {
		return domain.Receipt{}, &domain.DocumentGenerationError{Stage: "persist", Err: err}
	}
	return domain.Receipt{ID: req.Folio, Key: key, URL: url}, nil
}

// List returns one page of stored receipts of kind.
func (s *DocumentService) List(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error) {
	if kind != domain.ReceiptIssuance && kind != domain.ReceiptCancellation {
		return nil, 0, fmt.Errorf("%w: unknown receipt kind %q", domain.ErrValidation, kind)
	}
	records, total, err := s.receipts.List(ctx, kind, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.DocumentService.List: %w", err)
	}
	return records, total, nil
}
