package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/collect"
	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/internal/store"
	"github.com/sells-group/equity-cli/internal/validation"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for scoring and validation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		v, err := initValidator()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(v, st, initCollector(), cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type api struct {
	validator *validation.Validator
	store     store.Store
	collector sourceCollector
	keep      int
}

// buildRouter wires the API routes. collector may be nil, in which case
// validation requests must carry a primary record.
func buildRouter(v *validation.Validator, st store.Store, collector sourceCollector, origins []string) chi.Router {
	a := &api{validator: v, store: st, collector: collector}
	if cfg != nil {
		a.keep = cfg.Store.KeepLatest
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/score", a.handleScore)
		r.Post("/validate", a.handleValidate)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Post("/runs/{id}/resolve", a.handleResolveRun)
	})
	return r
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleScore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	writeJSON(w, http.StatusOK, a.validator.ScoreJSON(data))
}

type validateRequest struct {
	Ticker    string          `json:"ticker"`
	Primary   json.RawMessage `json:"primary,omitempty"`
	Secondary json.RawMessage `json:"secondary,omitempty"`
	Save      *bool           `json:"save,omitempty"`
}

type runResponse struct {
	ID      string        `json:"id,omitempty"`
	Outcome model.Outcome `json:"outcome"`
}

func (a *api) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticker := store.NormalizeTicker(req.Ticker)
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	sources, status, err := a.requestSources(r.Context(), ticker, req)
	if err != nil {
		zap.L().Warn("api: validate sources", zap.String("ticker", ticker), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}

	out := a.validator.Validate(ticker, sources.Primary, sources.Secondary)
	resp := runResponse{Outcome: out}
	if req.Save == nil || *req.Save {
		run := &model.Run{Ticker: ticker, Outcome: out}
		if err := store.SaveWithRetention(r.Context(), a.store, run, a.keep); err != nil {
			zap.L().Error("api: save run", zap.String("ticker", ticker), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not save run")
			return
		}
		resp.ID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestSources decodes inline records, or collects live ones when the
// request has no primary record.
func (a *api) requestSources(ctx context.Context, ticker string, req validateRequest) (*collect.Sources, int, error) {
	if isNullJSON(req.Primary) {
		if a.collector == nil {
			return nil, http.StatusBadRequest, eris.New("primary record is required")
		}
		s, err := a.collector.Collect(ctx, ticker)
		if err != nil {
			return nil, http.StatusBadGateway, eris.Wrap(err, "collect sources")
		}
		return s, http.StatusOK, nil
	}

	primary, err := model.DecodeRecord(req.Primary)
	if err != nil {
		return nil, http.StatusBadRequest, eris.New("primary must be a JSON object")
	}
	sources := &collect.Sources{Primary: primary}
	if isNullJSON(req.Secondary) {
		sources.Secondary = model.Unavailable(collect.SecondaryName, eris.New("no secondary record supplied"))
		return sources, http.StatusOK, nil
	}
	secondary, err := model.DecodeRecord(req.Secondary)
	if err != nil {
		return nil, http.StatusBadRequest, eris.New("secondary must be a JSON object")
	}
	sources.Secondary = model.NewSource(collect.SecondaryName, secondary)
	return sources, http.StatusOK, nil
}

func (a *api) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{Ticker: r.URL.Query().Get("ticker")}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (a *api) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type resolveRequest struct {
	Resolutions []validation.Resolution `json:"resolutions"`
}

// handleResolveRun applies reviewer resolutions to a saved run and saves the
// result as a new run.
func (a *api) handleResolveRun(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}

	out, err := a.validator.Resolve(run.Outcome, req.Resolutions)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	resolved := &model.Run{Ticker: run.Ticker, Outcome: out}
	if err := store.SaveWithRetention(r.Context(), a.store, resolved, a.keep); err != nil {
		zap.L().Error("api: save resolved run", zap.String("run_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save run")
		return
	}
	writeJSON(w, http.StatusOK, runResponse{ID: resolved.ID, Outcome: out})
}

func (a *api) loadRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := a.store.GetRun(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	case err != nil:
		zap.L().Error("api: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return nil, false
	}
	return run, true
}

func isNullJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
