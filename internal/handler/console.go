package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/auth"
	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/logging"
)

// GetStatus handles GET /api/console/status.
// It confirms the session reaches the store and warms the registry.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Status.Check(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	body := map[string]any{"status": "ok", "registryVersion": st.RegistryVersion}
	if u, ok := auth.UserFromContext(r.Context()); ok {
		body["user"] = u.Email
	}
	writeJSON(w, http.StatusOK, body)
}

// GetSearch handles GET /api/console/search?idsae=|nombre=|tag=.
// Exactly one of the three may be set; none returns an empty table.
func (s *Server) GetSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	form, err := domain.SearchFormFromFields(q.Get("idsae"), q.Get("nombre"), q.Get("tag"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	query := form.Query()
	if err := runtime.BindQueryParameter("form", true, false, "min_version", q, &query.MinVersion); err != nil {
		requestError(w, "min_version must be an integer")
		return
	}

	rows, err := s.Search.Search(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toSearchResultsJSON(rows)})
}

// GetSuspensions handles GET /api/console/suspensions and
// GET /api/control/suspensions: the misuse log, newest first.
func (s *Server) GetSuspensions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Search.Suspended(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toSearchResultsJSON(rows)})
}

// PostSuspension handles POST /api/console/suspensions.
// When the body names the operator's search, it is re-run against the
// registry version that includes the new entry.
func (s *Server) PostSuspension(w http.ResponseWriter, r *http.Request) {
	var body SuspendBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	req := domain.SuspendRequest{
		IDSAE:      body.IDSAE,
		Kind:       domain.CredentialKind(body.Kind),
		Code:       body.Code,
		Identifier: body.Identifier,
		Reason:     body.Reason,
	}
	var rerun *domain.SearchQuery
	if body.Search != nil {
		rerun = &domain.SearchQuery{Mode: domain.SearchMode(body.Search.Mode), Key: body.Search.Key}
	}

	out, err := s.Suspensions.Suspend(r.Context(), req, rerun)
	if err != nil && out.Entry.ID == 0 {
		s.writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"entry": map[string]any{
			"id":         out.Entry.ID,
			"idsae":      out.Entry.IDSAE,
			"credential": out.Entry.Credential,
			"date":       out.Entry.Date,
			"reason":     out.Entry.Reason,
		},
		"version": out.Version,
	}
	if err != nil {
		// The entry is committed; only the refreshed table is missing.
		logging.FromContext(r.Context(), s.Log).Warn("search rerun after suspension failed", zap.Error(err))
		resp["rerunError"] = unwrapMessage(err)
	} else if out.Results != nil {
		resp["results"] = toSearchResultsJSON(out.Results)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetOwners handles GET /api/console/owners?nombre=.
func (s *Server) GetOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.Payments.SearchOwners(r.Context(), r.URL.Query().Get("nombre"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]OwnerJSON, 0, len(owners))
	for _, o := range owners {
		out = append(out, toOwnerJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": out})
}

// GetOwner handles GET /api/console/owners/{idsae}.
func (s *Server) GetOwner(w http.ResponseWriter, r *http.Request) {
	var idsae int64
	err := runtime.BindStyledParameterWithOptions("simple", "idsae", chi.URLParam(r, "idsae"), &idsae,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		requestError(w, "idsae must be an integer")
		return
	}
	owner, err := s.Credentials.LookupOwner(r.Context(), idsae)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOwnerJSON(owner))
}

// GetAvailableTags handles GET /api/console/tags/available.
func (s *Server) GetAvailableTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.Credentials.ListAvailable(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// PostAssignment handles POST /api/console/assignments.
// A receipt failure after the credential is bound answers 502 but still
// carries the committed credential.
func (s *Server) PostAssignment(w http.ResponseWriter, r *http.Request) {
	var body AssignBody
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

	out, err := s.Credentials.Assign(r.Context(), domain.AssignRequest{
		IDSAE:      body.IDSAE,
		OwnerName:  body.OwnerName,
		Address:    body.Address,
		Kind:       domain.CredentialKind(body.Kind),
		Code:       body.Code,
		Identifier: body.Identifier,
		Photos:     photos,
		Signature:  signature,
	})
	var docErr *domain.DocumentGenerationError
	switch {
	case errors.As(err, &docErr):
		logging.FromContext(r.Context(), s.Log).Error("assignment receipt failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":      ErrorDetail{Code: "document_error", Message: docErr.Error()},
			"credential": toCredentialJSON(&out.Credential),
		})
	case err != nil:
		s.writeServiceError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, map[string]any{
			"credential": toCredentialJSON(&out.Credential),
			"receipt":    toReceiptJSON(out.Receipt),
		})
	}
}

// PostDeactivation handles POST /api/console/deactivations.
func (s *Server) PostDeactivation(w http.ResponseWriter, r *http.Request) {
	var body DeactivateBody
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

	receipt, err := s.Credentials.Deactivate(r.Context(), domain.DeactivateRequest{
		IDSAE:      body.IDSAE,
		OwnerName:  body.OwnerName,
		Address:    body.Address,
		Kind:       domain.CredentialKind(body.Kind),
		Code:       body.Code,
		Identifier: body.Identifier,
		Mode:       domain.CancellationMode(body.Mode),
		Photos:     photos,
		Signature:  signature,
	})
	var docErr *domain.DocumentGenerationError
	switch {
	case errors.As(err, &docErr):
		logging.FromContext(r.Context(), s.Log).Error("cancellation receipt failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":       ErrorDetail{Code: "document_error", Message: docErr.Error()},
			"deactivated": true,
		})
	case err != nil:
		s.writeServiceError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"deactivated": true, "receipt": toReceiptJSON(receipt)})
	}
}

// PostPayment handles POST /api/console/payments.
func (s *Server) PostPayment(w http.ResponseWriter, r *http.Request) {
	var body PaymentBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	owner, err := s.Payments.RegisterPayment(r.Context(), domain.PaymentRequest{
		IDSAE:      body.IDSAE,
		OwnerName:  body.OwnerName,
		Expiration: body.Vigencia,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": toOwnerJSON(owner), "vigencia": body.Vigencia})
}
