package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/hhsynth/internal/generator"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/websocket"
)

// BatchGenerator is satisfied by *generator.Pipeline.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, req generator.Request) (*generator.Batch, error)
}

type generateResponse struct {
	Success    bool               `json:"success"`
	Count      int                `json:"count"`
	Region     string             `json:"region"`
	Period     string             `json:"period"`
	Seed       int64              `json:"seed"`
	Households []*model.Household `json:"households"`
}

type HouseholdHandler struct {
	gen           BatchGenerator
	hub           *websocket.Hub
	defaultRegion string
	defaultPeriod string
	logger        *slog.Logger
}

func NewHouseholdHandler(gen BatchGenerator, hub *websocket.Hub, defaultRegion, defaultPeriod string, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		gen:           gen,
		hub:           hub,
		defaultRegion: defaultRegion,
		defaultPeriod: defaultPeriod,
		logger:        logger,
	}
}

func (h *HouseholdHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *HouseholdHandler) withDefaults(req generator.Request) generator.Request {
	if strings.TrimSpace(req.Region) == "" {
		req.Region = h.defaultRegion
	}
	if strings.TrimSpace(req.Period) == "" {
		req.Period = h.defaultPeriod
	}
	return req
}

// Generate handles POST /api/v1/households/generate.
func (h *HouseholdHandler) Generate(w http.ResponseWriter, r *http.Request) {
	req := generator.Request{Count: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	h.run(w, r, h.withDefaults(req))
}

// GenerateSingle handles GET /api/v1/households/generate/single.
func (h *HouseholdHandler) GenerateSingle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := generator.Request{
		Region:     q.Get("region"),
		Period:     q.Get("period"),
		Complexity: q.Get("complexity"),
		Pattern:    q.Get("pattern"),
		Count:      1,
	}
	if s := q.Get("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seed must be an integer"})
			return
		}
		req.Seed = &seed
	}
	h.run(w, r, h.withDefaults(req))
}

func (h *HouseholdHandler) run(w http.ResponseWriter, r *http.Request, req generator.Request) {
	batch, err := h.gen.GenerateBatch(r.Context(), req)
	if err != nil {
		writeGenError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.BatchGenerated(batch.Region, batch.Period, len(batch.Households), batch.Seed))

	writeJSON(w, http.StatusOK, generateResponse{
		Success:    true,
		Count:      len(batch.Households),
		Region:     batch.Region,
		Period:     batch.Period,
		Seed:       batch.Seed,
		Households: batch.Households,
	})
}
