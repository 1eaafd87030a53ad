package spec_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tagconsole/spec"
)

func loadDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData(spec.OpenAPI)
	require.NoError(t, err)
	return doc
}

func TestOpenAPI_IsValid(t *testing.T) {
	require.NoError(t, loadDoc(t).Validate(context.Background()))
}

// TestOpenAPI_DocumentsEveryRoute keeps the document in step with the
// routes mounted by handler.Server.
func TestOpenAPI_DocumentsEveryRoute(t *testing.T) {
	doc := loadDoc(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/healthz"},
		{http.MethodPost, "/api/query"},
		{http.MethodPost, "/api/upload"},
		{http.MethodOptions, "/api/upload"},
		{http.MethodGet, "/api/console/status"},
		{http.MethodGet, "/api/console/search"},
		{http.MethodGet, "/api/console/suspensions"},
		{http.MethodPost, "/api/console/suspensions"},
		{http.MethodGet, "/api/console/owners"},
		{http.MethodGet, "/api/console/owners/{idsae}"},
		{http.MethodGet, "/api/console/tags/available"},
		{http.MethodPost, "/api/console/assignments"},
		{http.MethodPost, "/api/console/deactivations"},
		{http.MethodPost, "/api/console/payments"},
		{http.MethodGet, "/api/console/receipts"},
		{http.MethodPost, "/api/console/receipts"},
		{http.MethodGet, "/api/control/lookup"},
		{http.MethodGet, "/api/control/suspensions"},
	}
	for _, rt := range routes {
		item := doc.Paths.Find(rt.path)
		if !assert.NotNil(t, item, rt.path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(rt.method), "%s %s", rt.method, rt.path)
	}
}
