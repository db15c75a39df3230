package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/answertext"
	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/ontology"
	"github.com/sells-group/valence-cli/internal/resilience"
	"github.com/sells-group/valence-cli/internal/review"
	"github.com/sells-group/valence-cli/internal/statusbatch"
	"github.com/sells-group/valence-cli/pkg/valence"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	Long:  "Serves the batched deal-status endpoint plus answer formatting and category grouping for browser clients.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := newClient()
		svc, err := newService(client)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(svc, newStatusHandler(client)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newStatusHandler(client valence.Client) *statusbatch.Handler {
	opts := []statusbatch.Option{
		statusbatch.WithConcurrency(cfg.Batch.Concurrency),
		statusbatch.WithUpstreamTimeout(seconds(cfg.Batch.UpstreamTimeoutSecs)),
		statusbatch.WithRateLimit(cfg.Batch.RatePerSec, cfg.Batch.Concurrency),
	}
	if cfg.Batch.BreakerThreshold > 0 {
		breaker := resilience.FromCircuitConfig(cfg.Batch.BreakerThreshold, cfg.Batch.BreakerResetSecs)
		breaker.Name = "deal-status"
		opts = append(opts, statusbatch.WithCircuitBreaker(resilience.NewCircuitBreaker(breaker)))
	}
	return statusbatch.NewHandler(statusbatch.NewFetcher(client, opts...), cfg.Batch.MaxDealsPerRequest)
}

// buildRouter wires the HTTP routes. status may be nil when the batch
// endpoint is not served.
func buildRouter(svc *review.Service, status http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if status != nil {
		r.Route("/functions/v1", func(r chi.Router) {
			r.Use(statusbatch.CORS())
			r.Handle("/deal-statuses", status)
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/format", handleFormat)
		if svc != nil {
			r.Get("/deals/{dealID}/categories", handleCategories(svc))
			r.Get("/ontology/questions", handleQuestions(svc))
		}
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type formatRequest struct {
	Text string `json:"text"`
}

type formatResponse struct {
	Blocks    []answertext.Block `json:"blocks"`
	Citations []int              `json:"citations"`
}

func handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, statusbatch.MaxBodyBytes)).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	blocks := answertext.Parse(req.Text)
	if blocks == nil {
		blocks = []answertext.Block{}
	}
	citations := answertext.Citations(blocks)
	if citations == nil {
		citations = []int{}
	}
	writeJSONResponse(w, http.StatusOK, formatResponse{Blocks: blocks, Citations: citations})
}

type categoriesResponse struct {
	DealID            string            `json:"deal_id"`
	Categories        []ontology.Bucket `json:"categories"`
	TotalQuestions    int               `json:"total_questions"`
	AnsweredQuestions int               `json:"answered_questions"`
}

func handleCategories(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealID := chi.URLParam(r, "dealID")

		resp, err := svc.Answers(r.Context(), dealID)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		buckets := ontology.GroupAnswers(resp.Answers, resp.Applicabilities)
		if buckets == nil {
			buckets = []ontology.Bucket{}
		}
		total, answered := ontology.Totals(buckets)
		writeJSONResponse(w, http.StatusOK, categoriesResponse{
			DealID:            dealID,
			Categories:        buckets,
			TotalQuestions:    total,
			AnsweredQuestions: answered,
		})
	}
}

type questionsResponse struct {
	Schema    string                   `json:"schema"`
	Tabs      []ontology.Tab           `json:"tabs"`
	Questions []model.OntologyQuestion `json:"questions"`
}

func handleQuestions(svc *review.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := svc.Questions(r.Context())
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		schema := ontology.DetectSchema(questions)
		questions = ontology.Normalize(questions, schema)
		tabs := ontology.Tabs(questions)

		if cat := r.URL.Query().Get("category"); cat != "" {
			questions = ontology.InCategory(questions, cat)
		}
		questions = ontology.Search(questions, r.URL.Query().Get("search"))
		if questions == nil {
			questions = []model.OntologyQuestion{}
		}

		writeJSONResponse(w, http.StatusOK, questionsResponse{
			Schema:    schema.String(),
			Tabs:      tabs,
			Questions: questions,
		})
	}
}

// writeUpstreamError maps backend failures onto the response: backend 404s
// stay 404, everything else is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *valence.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		writeJSONResponse(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}
	zap.L().Error("upstream request failed", zap.Error(err))
	writeJSONResponse(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
}

func writeJSONResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
