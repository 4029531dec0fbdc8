package catalog_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-map-engine/internal/adapter/catalog"
	"github.com/couchcryptid/incident-map-engine/internal/observability"
)

const catalogJSON = `[
	{
		"id": "ST-00",
		"name": "Northern Province",
		"boundary": [
			{"lat": 9, "lon": 7},
			{"lat": 11, "lon": 7},
			{"lat": 11, "lon": 9},
			{"lat": 9, "lon": 9}
		]
	},
	{
		"id": "ST-01",
		"name": "Degenerate",
		"boundary": [
			{"lat": 9, "lon": 9},
			{"lat": 11, "lon": 9}
		]
	},
	{
		"id": "",
		"name": "Anonymous",
		"boundary": [
			{"lat": 0, "lon": 10},
			{"lat": 1, "lon": 10},
			{"lat": 1, "lon": 11}
		]
	}
]`

func newLoader() *catalog.Loader {
	return catalog.NewLoader(2*time.Second, slog.Default(), observability.NewMetricsForTesting())
}

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Load_File(t *testing.T) {
	path := writeCatalogFile(t, catalogJSON)

	regions, err := newLoader().Load(context.Background(), path)
	require.NoError(t, err)

	// Malformed and anonymous entries are excluded, not fatal.
	require.Len(t, regions, 1)
	assert.Equal(t, "ST-00", regions[0].ID)
	assert.Equal(t, "Northern Province", regions[0].Name)
	assert.Len(t, regions[0].Boundary, 4)
}

func TestLoader_Load_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	regions, err := newLoader().Load(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "ST-00", regions[0].ID)
}

func TestLoader_Load_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newLoader().Load(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := newLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoader_Load_MalformedJSON(t *testing.T) {
	path := writeCatalogFile(t, "not json")

	_, err := newLoader().Load(context.Background(), path)
	assert.Error(t, err)
}

func TestLoader_Load_NoValidRegions(t *testing.T) {
	path := writeCatalogFile(t, `[{"id": "ST-00", "boundary": []}]`)

	_, err := newLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid regions")
}
