package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/histeq/internal/framework"
	"github.com/Sumatoshi-tech/histeq/internal/observability"
	"github.com/Sumatoshi-tech/histeq/pkg/histeq"
	"github.com/Sumatoshi-tech/histeq/pkg/rawio"
)

// HTTP routes served by `histeq serve`.
const (
	RouteEqualize  = "/api/equalize"
	RouteHistogram = "/api/histogram"
	RouteMetrics   = "/metrics"
	RouteHealth    = "/healthz"
	RouteReady     = "/readyz"
)

// Response headers carrying run statistics next to the equalized bytes.
const (
	HeaderMode     = "X-Histeq-Mode"
	HeaderLeaves   = "X-Histeq-Leaves"
	HeaderMaxDepth = "X-Histeq-Max-Depth"
	HeaderWorkers  = "X-Histeq-Workers"
)

const serveShutdownTimeout = 10 * time.Second

// errDraining is reported by the readiness check once shutdown has begun.
var errDraining = errors.New("server is draining")

// errBadParam marks an unparsable query parameter.
var errBadParam = errors.New("invalid query parameter")

// API serves the equalization HTTP endpoints.
type API struct {
	// Runner supplies defaults. Query parameters override threshold,
	// workers, and mode per request.
	Runner framework.Runner

	// Metrics records per-route RED metrics. Nil disables recording.
	Metrics *observability.REDMetrics

	// Logger receives handler errors. Nil uses slog.Default().
	Logger *slog.Logger

	// MaxBody bounds request bodies in bytes. Zero disables the limit.
	MaxBody int64

	draining atomic.Bool
}

// HistogramResponse is the JSON body of POST /api/histogram.
type HistogramResponse struct {
	Samples int                   `json:"samples"`
	Stats   histeq.IntensityStats `json:"stats"`
	Levels  map[int]int           `json:"levels"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Drain flips readiness to unavailable.
func (api *API) Drain() {
	api.draining.Store(true)
}

// Routes registers the API endpoints on a new mux. metrics may be nil.
func (api *API) Routes(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST "+RouteEqualize, api.instrument(RouteEqualize, api.equalize))
	mux.Handle("POST "+RouteHistogram, api.instrument(RouteHistogram, api.histogram))
	mux.Handle("GET "+RouteHealth, observability.HealthHandler())
	mux.Handle("GET "+RouteReady, observability.ReadyHandler(api.ready))

	if metrics != nil {
		mux.Handle("GET "+RouteMetrics, metrics)
	}

	return mux
}

func (api *API) ready(_ context.Context) error {
	if api.draining.Load() {
		return errDraining
	}

	return nil
}

func (api *API) logger() *slog.Logger {
	if api.Logger != nil {
		return api.Logger
	}

	return slog.Default()
}

// instrument adapts an error-returning handler, answering errors as JSON and
// recording RED metrics under op.
func (api *API) instrument(op string, handle func(http.ResponseWriter, *http.Request) error) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		ctx := hr.Context()
		start := time.Now()

		if api.Metrics != nil {
			done := api.Metrics.TrackInflight(ctx, op)
			defer done()
		}

		status := observability.StatusOK

		err := handle(rw, hr)
		if err != nil {
			status = observability.StatusError
			code := statusCode(err)

			api.logger().WarnContext(ctx, "request failed", "op", op, "code", code, "error", err)
			writeJSON(rw, code, errorResponse{Error: err.Error()})
		}

		if api.Metrics != nil {
			api.Metrics.RecordRequest(ctx, op, status, time.Since(start))
		}
	})
}

func (api *API) equalize(rw http.ResponseWriter, hr *http.Request) error {
	runner, err := api.runnerFor(hr)
	if err != nil {
		return err
	}

	samples, err := api.readBody(rw, hr)
	if err != nil {
		return err
	}

	res, err := runner.Run(hr.Context(), samples)
	if err != nil {
		return err
	}

	header := rw.Header()
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Content-Length", strconv.Itoa(len(res.Output)))
	header.Set(HeaderMode, string(res.Mode))
	header.Set(HeaderLeaves, strconv.Itoa(res.Stats.Leaves))
	header.Set(HeaderMaxDepth, strconv.Itoa(res.Stats.MaxDepth))
	header.Set(HeaderWorkers, strconv.Itoa(res.Stats.Workers))
	rw.WriteHeader(http.StatusOK)

	_, err = rw.Write(res.Output)
	if err != nil {
		api.logger().DebugContext(hr.Context(), "write response", "error", err)
	}

	return nil
}

func (api *API) histogram(rw http.ResponseWriter, hr *http.Request) error {
	samples, err := api.readBody(rw, hr)
	if err != nil {
		return err
	}

	hist := histeq.ComputeHistogram(samples)

	writeJSON(rw, http.StatusOK, HistogramResponse{
		Samples: len(samples),
		Stats:   hist.Stats(),
		Levels:  hist.Levels(),
	})

	return nil
}

func (api *API) readBody(rw http.ResponseWriter, hr *http.Request) ([]uint8, error) {
	body := hr.Body
	if api.MaxBody > 0 {
		body = http.MaxBytesReader(rw, hr.Body, api.MaxBody)
	}

	return rawio.ReadStream(body, rawio.Options{MaxSize: api.MaxBody})
}

// runnerFor copies the default runner and applies query overrides.
func (api *API) runnerFor(hr *http.Request) (framework.Runner, error) {
	runner := api.Runner
	query := hr.URL.Query()

	if raw := query.Get("threshold"); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil {
			return runner, fmt.Errorf("%w: threshold=%q", errBadParam, raw)
		}

		runner.Threshold = threshold
	}

	if raw := query.Get("workers"); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil || workers < 0 {
			return runner, fmt.Errorf("%w: workers=%q", errBadParam, raw)
		}

		runner.Workers = workers
	}

	if raw := query.Get("mode"); raw != "" {
		mode, err := framework.ParseMode(raw)
		if err != nil {
			return runner, err
		}

		runner.Mode = mode
	}

	return runner, nil
}

func statusCode(err error) int {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr), errors.Is(err, rawio.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadParam),
		errors.Is(err, framework.ErrUnknownMode),
		errors.Is(err, histeq.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(rw http.ResponseWriter, code int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(value)
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve equalization over HTTP",
		Long: `Start an HTTP server exposing equalization endpoints.

Endpoints:
  POST /api/equalize?threshold=N&workers=N&mode=divide|global
                    body: raw samples, response: equalized samples
  POST /api/histogram  body: raw samples, response: JSON statistics
  GET  /metrics        Prometheus metrics
  GET  /healthz        liveness
  GET  /readyz         readiness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	prom, err := observability.NewPrometheusExporter()
	if err != nil {
		return err
	}

	sess, err := newSession(cmd, observability.ModeServe, observability.Options{MetricReader: prom.Reader})
	if err != nil {
		return err
	}
	defer sess.close()

	red, err := observability.NewREDMetrics(sess.providers.Meter)
	if err != nil {
		return err
	}

	_, err = observability.NewRuntimeMetrics(sess.providers.Meter)
	if err != nil {
		return err
	}

	maxBody, err := sess.cfg.Server.MaxBodyBytes()
	if err != nil {
		return err
	}

	if addr == "" {
		addr = sess.cfg.Server.Addr
	}

	api := &API{
		Runner:  sess.runner(),
		Metrics: red,
		Logger:  sess.providers.Logger,
		MaxBody: maxBody,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      observability.HTTPMiddleware(sess.providers.Tracer, sess.providers.Logger, api.Routes(prom.Handler)),
		ReadTimeout:  sess.cfg.Server.ReadTimeout,
		WriteTimeout: sess.cfg.Server.WriteTimeout,
		IdleTimeout:  sess.cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		sess.providers.Logger.Info("http server listening", "addr", addr)

		serveErr := httpSrv.ListenAndServe()
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}

		return serveErr
	})

	group.Go(func() error {
		<-groupCtx.Done()
		api.Drain()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdownTimeout)
		defer cancel()

		sess.providers.Logger.Info("http server shutting down")

		return httpSrv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
