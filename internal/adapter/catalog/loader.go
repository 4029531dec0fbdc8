// Package catalog loads the static Region Catalog from a local file or an
// HTTP endpoint. The catalog is loaded once per session and treated as
// immutable afterward.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
	"github.com/couchcryptid/incident-map-engine/internal/observability"
)

// Loader fetches and validates region catalog documents.
type Loader struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewLoader creates a Loader whose HTTP fetches are bounded by timeout.
func NewLoader(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Load reads the catalog from source, an http(s) URL or a file path,
// and returns the valid regions. Entries with malformed geometry are
// excluded, logged, and counted, not fatal: they fall back to no-data
// styling downstream. An unreadable source or a catalog with no usable
// region at all is an error (boundary data unavailable).
func (l *Loader) Load(ctx context.Context, source string) ([]domain.Region, error) {
	data, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	var raw []domain.Region
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse region catalog: %w", err)
	}

	regions := make([]domain.Region, 0, len(raw))
	for _, region := range raw {
		if region.ID == "" || !region.ValidGeometry() {
			l.metrics.CatalogInvalidRegions.Inc()
			l.logger.Warn("excluding region with invalid geometry",
				"region_id", region.ID,
				"vertices", len(region.Boundary),
			)
			continue
		}
		regions = append(regions, region)
	}

	if len(regions) == 0 {
		return nil, errors.New("region catalog contains no valid regions")
	}

	l.metrics.CatalogRegions.Set(float64(len(regions)))
	l.logger.Info("region catalog loaded", "source", source, "regions", len(regions))
	return regions, nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("create catalog request: %w", err)
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch region catalog: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("catalog endpoint error: status %d: %s", resp.StatusCode, body)
		}
		return io.ReadAll(resp.Body)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read region catalog: %w", err)
	}
	return data, nil
}
