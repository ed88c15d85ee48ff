package cli

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tablemap/tablemap/pkg/diagram"
	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/observability"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr  string
	stats bool
}

// newServeCmd creates the serve command. It keeps one live diagram engine
// over the database and exposes renders, the options document and metrics
// over HTTP.
func newServeCmd() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [database]",
		Short: "Serve rendered diagrams over HTTP",
		Long: `Serve keeps a live diagram of the database and exposes it over HTTP:

  GET  /diagram.svg   the diagram as SVG (query: zoom)
  GET  /diagram.png   the diagram as PNG (query: zoom)
  GET  /options       the current options document
  PUT  /options       apply an options document
  POST /refresh       re-read the schema from the database
  GET  /healthz       liveness probe
  GET  /metrics       Prometheus metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "collect and show row counts and sizes")

	return cmd
}

func runServe(ctx context.Context, input string, opts *serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	provider, err := openProvider(ctx, input, opts.stats)
	if err != nil {
		return err
	}
	defer provider.Close()

	eng, err := buildEngine(ctx, provider, cfg, false)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(registry)
	observability.SetDiagramHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	if _, err := eng.Populate(ctx); err != nil {
		return err
	}
	o := eng.Options()
	o.ShowStatistics = opts.stats
	if err := eng.SetOptions(ctx, o); err != nil {
		return err
	}

	srv := &diagramServer{engine: eng}
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(hookMiddleware)

	router.Get("/diagram.svg", srv.handleSVG)
	router.Get("/diagram.png", srv.handlePNG)
	router.Get("/options", srv.handleGetOptions)
	router.Put("/options", srv.handlePutOptions)
	router.Post("/refresh", srv.handleRefresh)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              opts.addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Infof("Serving %s on %s", input, opts.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

// diagramServer carries the engine into the HTTP handlers.
type diagramServer struct {
	engine *diagram.Engine
}

func (s *diagramServer) handleSVG(w http.ResponseWriter, r *http.Request) {
	if !s.applyZoom(w, r) {
		return
	}
	data, err := s.engine.MakeSVG(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(data)
}

func (s *diagramServer) handlePNG(w http.ResponseWriter, r *http.Request) {
	if !s.applyZoom(w, r) {
		return
	}
	img, err := s.engine.MakeImage(r.Context(), 1.0)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeRender, err, "failed to encode png"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *diagramServer) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.ExportOptions()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(doc)
}

func (s *diagramServer) handlePutOptions(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read request body"))
		return
	}
	if err := s.engine.ImportOptions(r.Context(), buf.Bytes()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *diagramServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	changed, err := s.engine.Populate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"changed":` + strconv.Itoa(len(changed)) + `}`))
}

// applyZoom applies the optional zoom query parameter. It reports false after
// writing an error response.
func (s *diagramServer) applyZoom(w http.ResponseWriter, r *http.Request) bool {
	raw := r.URL.Query().Get("zoom")
	if raw == "" {
		return true
	}
	zoom, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidZoom, "zoom must be a number"))
		return false
	}
	if err := errors.ValidateZoom(zoom); err != nil {
		writeError(w, err)
		return false
	}
	s.engine.SetZoom(zoom)
	return true
}

// writeError maps structured error codes onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidOptions, errors.ErrCodeInvalidZoom,
		errors.ErrCodeInvalidLayout, errors.ErrCodeInvalidFormat:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeEntityNotFound, errors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeBackend, errors.ErrCodeBackendBusy:
		status = http.StatusBadGateway
	}
	http.Error(w, errors.UserMessage(err), status)
}

// statusWriter captures the response code for the observability hooks.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// hookMiddleware reports request and response events to the HTTP hooks.
func hookMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}
