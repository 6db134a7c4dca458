package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/im0e/uvicorn/pkg/protocol/plainhttp"
	"github.com/im0e/uvicorn/pkg/server"
)

// settings are loaded from UVICORN_* environment variables and
// overridden by flags.
type settings struct {
	Host                    string        `default:"127.0.0.1"`
	Port                    int           `default:"8000"`
	UDS                     string        `envconfig:"UDS"`
	FD                      int           `envconfig:"FD" default:"-1"`
	LimitMaxRequests        int           `split_words:"true"`
	TimeoutGracefulShutdown time.Duration `split_words:"true"`
	NoDateHeader            bool          `split_words:"true"`
	MetricsAddr             string        `split_words:"true"`
}

func serveCmd() *cobra.Command {
	var s settings

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &s)
		},
	}

	cmd.Flags().StringVar(&s.Host, "host", "127.0.0.1", "TCP host to bind")
	cmd.Flags().IntVar(&s.Port, "port", 8000, "TCP port to bind (0 for ephemeral)")
	cmd.Flags().StringVar(&s.UDS, "uds", "", "UNIX domain socket path")
	cmd.Flags().IntVar(&s.FD, "fd", -1, "inherited listener file descriptor")
	cmd.Flags().IntVar(&s.LimitMaxRequests, "limit-max-requests", 0, "stop after this many requests (0 = unlimited)")
	cmd.Flags().DurationVar(&s.TimeoutGracefulShutdown, "timeout-graceful-shutdown", 0, "drain deadline (0 = wait forever)")
	cmd.Flags().BoolVar(&s.NoDateHeader, "no-date-header", false, "omit the date header from responses")
	cmd.Flags().StringVar(&s.MetricsAddr, "metrics-addr", "", "admin/metrics listen address (empty = disabled)")

	return cmd
}

func runServe(cmd *cobra.Command, s *settings) error {
	// Environment fills anything a flag did not set explicitly.
	var env settings
	if err := envconfig.Process("uvicorn", &env); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	applyEnv(cmd, s, &env)

	logger := slog.Default()
	registry := prometheus.NewRegistry()

	cfg := server.DefaultConfig()
	cfg.Host = s.Host
	cfg.Port = s.Port
	cfg.UDS = s.UDS
	cfg.FD = s.FD
	cfg.LimitMaxRequests = s.LimitMaxRequests
	cfg.TimeoutGracefulShutdown = s.TimeoutGracefulShutdown
	cfg.DateHeader = !s.NoDateHeader
	cfg.Logger = logger
	cfg.MetricsRegistry = registry
	cfg.Factory = plainhttp.NewFactory(placeholderApp, logger)

	srv := server.New(cfg)

	var admin *http.Server
	if s.MetricsAddr != "" {
		admin = adminServer(s.MetricsAddr, registry, srv)
		go func() {
			if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin server failed", "error", err)
			}
		}()
	}

	err := srv.Run()

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = admin.Shutdown(ctx)
	}
	return err
}

// applyEnv copies environment values into s for flags the user left at
// their defaults.
func applyEnv(cmd *cobra.Command, s, env *settings) {
	if !cmd.Flags().Changed("host") {
		s.Host = env.Host
	}
	if !cmd.Flags().Changed("port") {
		s.Port = env.Port
	}
	if !cmd.Flags().Changed("uds") {
		s.UDS = env.UDS
	}
	if !cmd.Flags().Changed("fd") {
		s.FD = env.FD
	}
	if !cmd.Flags().Changed("limit-max-requests") {
		s.LimitMaxRequests = env.LimitMaxRequests
	}
	if !cmd.Flags().Changed("timeout-graceful-shutdown") {
		s.TimeoutGracefulShutdown = env.TimeoutGracefulShutdown
	}
	if !cmd.Flags().Changed("no-date-header") {
		s.NoDateHeader = env.NoDateHeader
	}
	if !cmd.Flags().Changed("metrics-addr") {
		s.MetricsAddr = env.MetricsAddr
	}
}

// adminServer exposes Prometheus metrics and liveness alongside the
// main listener.
func adminServer(addr string, registry *prometheus.Registry, srv *server.Server) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if srv.ShouldExit() {
			http.Error(w, "draining", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// placeholderApp answers every request with a short status body. Real
// deployments provide their own App.
func placeholderApp(_ context.Context, req *plainhttp.Request) *plainhttp.Response {
	body := fmt.Sprintf("uvicorn: %s %s\n", req.Method, req.Target)
	return &plainhttp.Response{
		StatusCode: http.StatusOK,
		Header: []server.Header{
			{Name: []byte("content-type"), Value: []byte("text/plain; charset=utf-8")},
		},
		Body: []byte(body),
	}
}
