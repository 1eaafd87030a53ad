package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/handler"
)

func TestGetControlLookup(t *testing.T) {
	var gotKey string
	h := newHTTPHandler(handler.Deps{Search: &mockSearch{
		control: func(_ context.Context, key string) ([]domain.SearchResult, error) {
			gotKey = key
			if len(key) < 4 {
				return []domain.SearchResult{}, nil
			}
			return []domain.SearchResult{juanRow()}, nil
		},
	}})

	rec := do(t, h, http.MethodGet, "/api/control/lookup?q=ABC1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ABC1", gotKey)
	assert.Len(t, decode[resultsBody](t, rec).Results, 1)

	rec = do(t, h, http.MethodGet, "/api/control/lookup?q=AB", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}
