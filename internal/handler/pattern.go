package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/generator"
)

// DistributionHandler serves read-only views of the loaded distribution data.
type DistributionHandler struct {
	provider distribution.Provider
	catalog  distribution.Catalog
	logger   *slog.Logger
}

func NewDistributionHandler(provider distribution.Provider, catalog distribution.Catalog, logger *slog.Logger) *DistributionHandler {
	return &DistributionHandler{provider: provider, catalog: catalog, logger: logger}
}

// Patterns handles GET /api/v1/patterns/{region}/{period}.
func (h *DistributionHandler) Patterns(w http.ResponseWriter, r *http.Request) {
	region := strings.ToUpper(r.PathValue("region"))
	period := r.PathValue("period")

	set, err := h.provider.Load(r.Context(), region, period)
	if err != nil {
		h.logger.Error("load distributions", "region", region, "period", period, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load distributions"})
		return
	}
	patterns, err := generator.SummarizePatterns(set)
	if err != nil {
		writeGenError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"region":         region,
		"period":         period,
		"patterns":       patterns,
		"total_patterns": len(patterns),
	})
}

// Regions handles GET /api/v1/regions.
func (h *DistributionHandler) Regions(w http.ResponseWriter, r *http.Request) {
	var regions []distribution.RegionPeriod
	if h.catalog != nil {
		var err error
		regions, err = h.catalog.ListRegions(r.Context())
		if err != nil {
			h.logger.Error("list regions", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list regions"})
			return
		}
	}
	if regions == nil {
		regions = []distribution.RegionPeriod{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"regions":       regions,
		"total_regions": len(regions),
	})
}
