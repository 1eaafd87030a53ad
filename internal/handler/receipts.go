// Package handler: receipts.go implements the receipts viewer.
// GET lists stored documents as JSON or, with ?format=csv, as CSV.
package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tagconsole/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{"idsae", "kind", "mode", "etiqueta", "identificador", "url", "date"}

// ReceiptRecordJSON is one row of the receipts viewer.
type ReceiptRecordJSON struct {
	IDSAE         int64               `json:"idsae"`
	Kind          string              `json:"kind"`
	Mode          string              `json:"mode,omitempty"`
	Etiqueta      string              `json:"etiqueta"`
	Identificador string              `json:"identificador,omitempty"`
	URL           string              `json:"url"`
	Date          *openapi_types.Date `json:"date,omitempty"`
}

// GetReceipts handles GET /api/console/receipts?kind=&page=&limit=&format=.
func (s *Server) GetReceipts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		page, limit *int
		format      string
	)
	kind := domain.ReceiptKind(q.Get("kind"))
	if kind == "" {
		kind = domain.ReceiptIssuance
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		requestError(w, "page must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		requestError(w, "limit must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", q, &format); err != nil {
		requestError(w, err.Error())
		return
	}

	p := domain.NewPaginationParams(page, limit)
	records, total, err := s.Documents.List(r.Context(), kind, p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if format == "csv" {
		writeCSV(w, records)
		return
	}
	out := make([]ReceiptRecordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, toReceiptRecordJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":       out,
		"pagination": map[string]any{"page": p.Page, "limit": p.Limit, "total": total},
	})
}

// PostReceipt handles POST /api/console/receipts: it re-issues the
// document for a credential whose first attempt failed.
func (s *Server) PostReceipt(w http.ResponseWriter, r *http.Request) {
	var body ReceiptBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	photos, err := body.Photos.decode()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	signature, err := decodeImage(body.Signature)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	receipt, err := s.Documents.Issue(r.Context(), domain.ReceiptRequest{
		Kind:       domain.ReceiptKind(body.Kind),
		Mode:       domain.CancellationMode(body.Mode),
		Owner:      domain.Owner{IDSAE: body.IDSAE, Name: body.OwnerName, Address: body.Address},
		Credential: domain.CredentialKind(body.Credential),
		Code:       body.Code,
		Identifier: body.Identifier,
		Signature:  signature,
		Photos:     photos,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptJSON(&receipt))
}

func toReceiptRecordJSON(r domain.ReceiptRecord) ReceiptRecordJSON {
	out := ReceiptRecordJSON{
		IDSAE:         r.IDSAE,
		Kind:          string(r.Kind),
		Mode:          string(r.Mode),
		Etiqueta:      r.Code,
		Identificador: r.Identifier,
		URL:           r.URL,
	}
	if r.Date != nil {
		out.Date = &openapi_types.Date{Time: *r.Date}
	}
	return out
}

// writeCSV encodes records with a header row.
func writeCSV(w http.ResponseWriter, records []domain.ReceiptRecord) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range records {
		//nolint:errcheck
		cw.Write(receiptToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="comprobantes.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// receiptToCSVRecord encodes a record as a flat string slice.
// A nil date is encoded as an empty string.
func receiptToCSVRecord(r domain.ReceiptRecord) []string {
	return []string{
		strconv.FormatInt(r.IDSAE, 10),
		string(r.Kind),
		string(r.Mode),
		r.Code,
		r.Identifier,
		r.URL,
		formatOptionalTime(r.Date),
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
