package statusbatch

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds the request body.
const MaxBodyBytes = 1 << 20

// AllowedHeaders are the request headers browsers may send cross-origin.
var AllowedHeaders = []string{
	"authorization",
	"x-client-info",
	"apikey",
	"content-type",
	"x-supabase-client-platform",
	"x-supabase-client-platform-version",
	"x-supabase-client-runtime",
	"x-supabase-client-runtime-version",
}

// CORS returns the cross-origin middleware for the status endpoint.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: AllowedHeaders,
		MaxAge:         300,
	})
}

// Handler serves the batched status endpoint.
type Handler struct {
	fetcher *Fetcher
	maxIDs  int
}

// NewHandler creates a Handler backed by f. Requests naming more than
// maxIDs deals are rejected; zero means no limit.
func NewHandler(f *Fetcher, maxIDs int) *Handler {
	return &Handler{fetcher: f, maxIDs: maxIDs}
}

type statusRequest struct {
	DealIDs json.RawMessage `json:"deal_ids"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		zap.L().Error("statusbatch: decode request", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	var ids []string
	if err := json.Unmarshal(req.DealIDs, &ids); err != nil || len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deal_ids must be a non-empty array"})
		return
	}
	if h.maxIDs > 0 && len(ids) > h.maxIDs {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("deal_ids may name at most %d deals", h.maxIDs)})
		return
	}

	zap.L().Info("statusbatch: fetching statuses", zap.Int("deals", len(ids)))
	statuses := h.fetcher.Fetch(r.Context(), ids)
	zap.L().Info("statusbatch: fetched statuses", zap.Int("statuses", len(statuses)))

	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
