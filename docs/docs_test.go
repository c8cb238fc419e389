package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocTemplate_ValidAndCoversRoutes(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "/api/v1", doc.BasePath)

	routes := map[string][]string{
		"/auth/login":                           {"post"},
		"/auth/register":                        {"post"},
		"/books":                                {"get", "post"},
		"/books/{book_id}":                      {"get"},
		"/books/{book_id}/quantity":             {"put"},
		"/book-borrowing-requests":              {"get", "post"},
		"/book-borrowing-requests/mine":         {"get"},
		"/book-borrowing-requests/export":       {"get"},
		"/book-borrowing-requests/{id}":         {"get"},
		"/book-borrowing-requests/{id}/approve": {"post"},
		"/book-borrowing-requests/{id}/reject":  {"post"},
	}
	assert.Len(t, doc.Paths, len(routes))
	for path, methods := range routes {
		require.Contains(t, doc.Paths, path)
		for _, m := range methods {
			assert.Contains(t, doc.Paths[path], m, path)
		}
	}
}
