package handler

import "net/http"

// GetControlLookup handles GET /api/control/lookup?q=.
// The guard booth types a partial tag; fewer than four characters return
// an empty table.
func (s *Server) GetControlLookup(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Search.Control(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": toSearchResultsJSON(rows)})
}
