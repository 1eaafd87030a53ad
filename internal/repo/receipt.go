package repo

import (
	"context"
	"fmt"

	"github.com/pkordes/tagconsole/internal/domain"
)

// ReceiptRepo stores and lists receipt URLs kept on tag rows.
type ReceiptRepo interface {
	// AttachDocument writes url into the column that matches the receipt
	// kind and cancellation mode.
	// Returns domain.ErrNotFound if the member holds no such credential.
	AttachDocument(ctx context.Context, req domain.ReceiptRequest, url string) error

	// List returns one page of receipts of kind, newest first, and the
	// total number of receipts of that kind.
	List(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error)
}

type invokerReceiptRepo struct {
	inv Invoker
}

// NewReceiptRepo constructs a ReceiptRepo on inv.
func NewReceiptRepo(inv Invoker) ReceiptRepo {
	return &invokerReceiptRepo{inv: inv}
}

// documentColumn maps a receipt to its URL column. Only these three
// literal names are ever interpolated into SQL.
func documentColumn(req domain.ReceiptRequest) string {
	switch {
	case req.Kind == domain.ReceiptIssuance:
		return "doc_alta_tag"
	case req.Mode == domain.CancelRemote:
		return "cancelacion_wa"
	default:
		return "doc_cancelacion"
	}
}

func (r *invokerReceiptRepo) AttachDocument(ctx context.Context, req domain.ReceiptRequest, url string) error {
	col := documentColumn(req)
	match := "etiqueta = $3"
	if req.Credential == domain.KindApp {
		match = "identificador = $3"
	}
	touch := ", fecha_actualizacion = now()"
	if req.Kind == domain.ReceiptIssuance {
		touch = ""
	}

	q := fmt.Sprintf(`
		UPDATE tags SET %s = $1%s
		WHERE idsae = $2 AND %s
		RETURNING id_tags`, col, touch, match)

	rows, err := r.inv.Query(ctx, q, url, req.Owner.IDSAE, req.Key())
	if err != nil {
		return fmt.Errorf("repo.ReceiptRepo.AttachDocument: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("repo.ReceiptRepo.AttachDocument: %w", domain.ErrNotFound)
	}
	return nil
}

// receiptSources are the row sets listed by the viewer, keyed by kind.
// Cancellations come from two columns, one per confirmation mode.
var receiptSources = map[domain.ReceiptKind]string{
	domain.ReceiptIssuance: `
		SELECT idsae, etiqueta, identificador, doc_alta_tag AS url,
		       fecha_alta AS fecha, '' AS mode
		FROM tags
		WHERE doc_alta_tag IS NOT NULL AND doc_alta_tag <> ''`,
	domain.ReceiptCancellation: `
		SELECT idsae, etiqueta, identificador, doc_cancelacion AS url,
		       fecha_actualizacion AS fecha, 'in_person' AS mode
		FROM tags
		WHERE doc_cancelacion IS NOT NULL AND doc_cancelacion <> ''
		UNION ALL
		SELECT idsae, etiqueta, identificador, cancelacion_wa AS url,
		       fecha_actualizacion AS fecha, 'remote' AS mode
		FROM tags
		WHERE cancelacion_wa IS NOT NULL AND cancelacion_wa <> ''`,
}

// List counts separately from the page query so a page past the end still
// reports the real total.
func (r *invokerReceiptRepo) List(ctx context.Context, kind domain.ReceiptKind, p domain.PaginationParams) ([]domain.ReceiptRecord, int64, error) {
	source, ok := receiptSources[kind]
	if !ok {
		return nil, 0, fmt.Errorf("repo.ReceiptRepo.List: %w: unknown receipt kind %q", domain.ErrValidation, kind)
	}

	countRows, err := r.inv.Query(ctx, `SELECT COUNT(*) AS total FROM (`+source+`) receipts`)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ReceiptRepo.List: count: %w", err)
	}
	var total int64
	if len(countRows) > 0 {
		total = countRows[0].Int("total")
	}

	rows, err := r.inv.Query(ctx, `
		SELECT idsae, etiqueta, identificador, url, fecha, mode
		FROM (`+source+`) receipts
		ORDER BY fecha DESC NULLS LAST, idsae ASC
		LIMIT $1 OFFSET $2`, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ReceiptRepo.List: %w", err)
	}

	records := make([]domain.ReceiptRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.ReceiptRecord{
			IDSAE:      row.Int("idsae"),
			Kind:       kind,
			Mode:       domain.CancellationMode(row.String("mode")),
			Code:       row.String("etiqueta"),
			Identifier: row.String("identificador"),
			URL:        row.String("url"),
			Date:       row.Time("fecha"),
		})
	}
	return records, total, nil
}
