package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/repo"
	"github.com/pkordes/tagconsole/internal/storage"
)

// The gateway endpoints answer with flat {"error": "..."} bodies, which is
// what HTTPInvoker and HTTPUploader decode.
func gatewayError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, repo.QueryError{Error: msg})
}

// PostQuery handles POST /api/query: it executes one parameterised
// statement for a signed-in caller and returns the rows as a JSON array.
func (s *Server) PostQuery(w http.ResponseWriter, r *http.Request) {
	var body repo.QueryRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		gatewayError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		gatewayError(w, http.StatusBadRequest, "query is required")
		return
	}

	rows, err := s.Queries.Query(r.Context(), body.Query, normalizeParams(body.Params)...)
	if err != nil {
		msg := err.Error()
		var remote *domain.RemoteExecutionError
		if errors.As(err, &remote) {
			msg = remote.Message
		}
		logging.FromContext(r.Context(), s.Log).Warn("gateway query failed", zap.Error(err))
		gatewayError(w, http.StatusInternalServerError, msg)
		return
	}
	if rows == nil {
		rows = []repo.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// normalizeParams turns json.Number into int64 where the value is integral
// and float64 otherwise, so the driver sees native types.
func normalizeParams(in []any) []any {
	out := make([]any, len(in))
	for i, p := range in {
		n, ok := p.(json.Number)
		if !ok {
			out[i] = p
			continue
		}
		if v, err := n.Int64(); err == nil {
			out[i] = v
		} else if f, err := n.Float64(); err == nil {
			out[i] = f
		} else {
			out[i] = n.String()
		}
	}
	return out
}

// uploadHandler serves /api/upload: OPTIONS for preflight, POST for
// signed-in callers, 405 otherwise.
func (s *Server) uploadHandler(requireUser func(http.Handler) http.Handler) http.Handler {
	post := requireUser(http.HandlerFunc(s.PostUpload))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodOptions:
			w.Header().Set("Allow", "OPTIONS, POST")
			w.WriteHeader(http.StatusOK)
		case http.MethodPost:
			post.ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", "OPTIONS, POST")
			gatewayError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		}
	})
}

// PostUpload handles POST /api/upload with {fileName, fileBody, contentType}.
func (s *Server) PostUpload(w http.ResponseWriter, r *http.Request) {
	var body storage.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		gatewayError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.FileName) == "" {
		gatewayError(w, http.StatusBadRequest, "fileName is required")
		return
	}
	if body.ContentType == "" {
		body.ContentType = "application/pdf"
	}

	url, err := s.Uploads.Upload(r.Context(), body.FileName, body.FileBody, body.ContentType)
	if err != nil {
		logging.FromContext(r.Context(), s.Log).Error("upload failed", zap.String("file", body.FileName), zap.Error(err))
		gatewayError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logging.FromContext(r.Context(), s.Log).Info("file uploaded", zap.String("file", body.FileName), zap.Int("bytes", len(body.FileBody)))
	writeJSON(w, http.StatusOK, storage.UploadResponse{Message: "Archivo subido con éxito", FileURL: url})
}
