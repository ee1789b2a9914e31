package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/hhsynth/internal/database"
	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/generator"
	"github.com/dukerupert/hhsynth/internal/websocket"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStatic() *distribution.Static {
	s := distribution.NewStatic()
	s.Add("HI", "2023", distribution.Set{
		distribution.HouseholdPatterns: distribution.NewTable(distribution.HouseholdPatterns, "", []distribution.Row{
			{"pattern": "single_person", "weighted_count": "300"},
			{"pattern": "married_couple_no_children", "weighted_count": "100"},
		}),
	})
	return s
}

func setupHouseholdHandler(t *testing.T) (*HouseholdHandler, *websocket.Hub) {
	t.Helper()
	hub := websocket.NewHub(discard())
	p := generator.New(testStatic(), discard(), generator.WithMaxBatch(20))
	return NewHouseholdHandler(p, hub, "HI", "2023", discard()), hub
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return got
}

func TestGenerateBatch(t *testing.T) {
	h, _ := setupHouseholdHandler(t)

	body := `{"region":"hi","period":"2023","count":3,"seed":42}`
	req := httptest.NewRequest("POST", "/api/v1/households/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["success"] != true {
		t.Errorf("success = %v, want true", got["success"])
	}
	if got["count"] != float64(3) {
		t.Errorf("count = %v, want 3", got["count"])
	}
	if got["region"] != "HI" {
		t.Errorf("region = %v, want HI", got["region"])
	}
	if got["seed"] != float64(42) {
		t.Errorf("seed = %v, want 42", got["seed"])
	}
	if hh, _ := got["households"].([]any); len(hh) != 3 {
		t.Errorf("households = %d, want 3", len(hh))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	h, _ := setupHouseholdHandler(t)

	run := func() string {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"count":2,"seed":7}`))
		rec := httptest.NewRecorder()
		h.Generate(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		return rec.Body.String()
	}
	if a, b := run(), run(); a != b {
		t.Error("same seed produced different responses")
	}
}

func TestGenerateErrors(t *testing.T) {
	h, _ := setupHouseholdHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"count":`, http.StatusBadRequest},
		{"zero count", `{"count":0}`, http.StatusBadRequest},
		{"too many", `{"count":21}`, http.StatusBadRequest},
		{"unknown pattern", `{"pattern":"commune"}`, http.StatusBadRequest},
		{"unknown complexity", `{"complexity":"baroque"}`, http.StatusBadRequest},
		{"no data", `{"region":"ZZ","period":"1999"}`, http.StatusNotFound},
		{"pattern absent from data", `{"pattern":"blended_family"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Generate(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if _, ok := decodeBody(t, rec)["error"]; !ok {
				t.Error("expected error field")
			}
		})
	}
}

type failingGenerator struct{}

func (failingGenerator) GenerateBatch(context.Context, generator.Request) (*generator.Batch, error) {
	return nil, errors.New("connection reset")
}

func TestGenerateInternalError(t *testing.T) {
	h := NewHouseholdHandler(failingGenerator{}, nil, "HI", "2023", discard())

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Error("internal error detail leaked to client")
	}
}

func TestGenerateSingle(t *testing.T) {
	h, _ := setupHouseholdHandler(t)

	req := httptest.NewRequest("GET", "/api/v1/households/generate/single?pattern=single_adult&seed=5", nil)
	rec := httptest.NewRecorder()
	h.GenerateSingle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	hh, _ := got["households"].([]any)
	if len(hh) != 1 {
		t.Fatalf("households = %d, want 1", len(hh))
	}
	first, _ := hh[0].(map[string]any)
	if first["pattern"] != "single_adult" {
		t.Errorf("pattern = %v, want single_adult", first["pattern"])
	}

	req = httptest.NewRequest("GET", "/api/v1/households/generate/single?seed=abc", nil)
	rec = httptest.NewRecorder()
	h.GenerateSingle(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad seed: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGenerateBroadcasts(t *testing.T) {
	h, hub := setupHouseholdHandler(t)
	srv := httptest.NewServer(websocket.HandleWebSocket(hub, discard(), nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("dashboard never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"count":2,"seed":1}`))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "batch_generated" {
		t.Errorf("type = %q, want batch_generated", msg.Type)
	}
	if msg.Extra["count"] != float64(2) || msg.Extra["seed"] != float64(1) || msg.Extra["region"] != "HI" {
		t.Errorf("extra = %v", msg.Extra)
	}
}

func TestPatterns(t *testing.T) {
	h := NewDistributionHandler(testStatic(), testStatic(), discard())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/patterns/{region}/{period}", h.Patterns)

	req := httptest.NewRequest("GET", "/api/v1/patterns/hi/2023", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Region   string                  `json:"region"`
		Patterns []generator.PatternInfo `json:"patterns"`
		Total    int                     `json:"total_patterns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Region != "HI" || got.Total != 2 {
		t.Errorf("region = %q total = %d, want HI 2", got.Region, got.Total)
	}
	for _, p := range got.Patterns {
		if p.Pattern == "single_adult" && p.Percentage != 75 {
			t.Errorf("single_adult percentage = %v, want 75", p.Percentage)
		}
	}

	req = httptest.NewRequest("GET", "/api/v1/patterns/ZZ/1999", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing data: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegions(t *testing.T) {
	s := testStatic()
	s.Add("VT", "2022", distribution.Set{})
	h := NewDistributionHandler(s, s, discard())

	rec := httptest.NewRecorder()
	h.Regions(rec, httptest.NewRequest("GET", "/api/v1/regions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["total_regions"] != float64(2) {
		t.Errorf("total_regions = %v, want 2", got["total_regions"])
	}

	h = NewDistributionHandler(s, nil, discard())
	rec = httptest.NewRecorder()
	h.Regions(rec, httptest.NewRequest("GET", "/api/v1/regions", nil))
	if !strings.Contains(rec.Body.String(), `"regions":[]`) {
		t.Errorf("body = %s, want empty regions list", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	rec := httptest.NewRecorder()
	NewHealthHandler(db, "hhsynth").Health(rec, httptest.NewRequest("GET", "/health", nil))
	got := decodeBody(t, rec)
	if got["status"] != "healthy" || got["database_connected"] != true {
		t.Errorf("health = %v", got)
	}
	if got["service"] != "hhsynth" {
		t.Errorf("service = %v, want hhsynth", got["service"])
	}

	db.Close()
	rec = httptest.NewRecorder()
	NewHealthHandler(db, "hhsynth").Health(rec, httptest.NewRequest("GET", "/health", nil))
	got = decodeBody(t, rec)
	if got["status"] != "unhealthy" || got["database_connected"] != false {
		t.Errorf("closed db health = %v", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGenerateCancelled(t *testing.T) {
	h, _ := setupHouseholdHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"count":5,"seed":1}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
