package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vitalvas/astra/app"
	"github.com/vitalvas/astra/httpserver"
	"github.com/vitalvas/astra/middleware"
	"github.com/vitalvas/astra/routing"
	"github.com/vitalvas/astra/web"
)

var (
	flagConfig string
	flagAddr   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to a YAML config file")
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := &httpserver.Config{}
	if flagConfig != "" {
		loaded, err := httpserver.LoadConfig(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", "addr", cfg.Addr)
	return httpserver.New(a, *cfg).ListenAndServe(ctx)
}

func buildApp(cfg *httpserver.Config, logger *slog.Logger) (*app.App, error) {
	a := app.New(app.WithLogger(logger), app.WithDebug(cfg.Debug))

	if err := a.Use(middleware.Recovery(middleware.RecoveryConfig{})); err != nil {
		return nil, err
	}
	if err := a.Use(middleware.RequestID(middleware.RequestIDConfig{})); err != nil {
		return nil, err
	}
	if err := a.Use(middleware.Metrics(middleware.MetricsConfig{})); err != nil {
		return nil, err
	}

	if len(cfg.TrustedHosts) > 0 {
		mw, err := middleware.TrustedHost(middleware.TrustedHostConfig{AllowedHosts: cfg.TrustedHosts})
		if err != nil {
			return nil, err
		}
		if err := a.Use(mw); err != nil {
			return nil, err
		}
	}

	if len(cfg.AllowedOrigins) > 0 {
		mw, err := middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins})
		if err != nil {
			return nil, err
		}
		if err := a.Use(mw); err != nil {
			return nil, err
		}
	}

	compress, err := middleware.Compress(middleware.CompressConfig{MinLength: 1024})
	if err != nil {
		return nil, err
	}
	if err := a.Use(compress); err != nil {
		return nil, err
	}

	if err := registerRoutes(a); err != nil {
		return nil, err
	}

	a.OnStartup(func(_ context.Context) error {
		logger.Info("application started")
		return nil
	})
	a.OnShutdown(func(_ context.Context) error {
		logger.Info("application stopped")
		return nil
	})

	return a, nil
}

func registerRoutes(a *app.App) error {
	if err := a.Route("/", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.Text(http.StatusOK, "astra demo server\n"), nil
	}, routing.WithName("index")); err != nil {
		return err
	}

	if err := a.Route("/healthz", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		return web.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}, routing.WithName("health")); err != nil {
		return err
	}

	if err := a.Route("/echo/{word}", func(_ context.Context, req *web.Request) (*web.Response, error) {
		word, _ := req.Param("word")
		return web.Text(http.StatusOK, fmt.Sprintf("%v\n", word)), nil
	}, routing.WithName("echo")); err != nil {
		return err
	}

	metricsHandler := promhttp.Handler()
	return a.Route("/metrics", func(_ context.Context, _ *web.Request) (*web.Response, error) {
		rec := newRecorder()
		r, err := http.NewRequest(http.MethodGet, "/metrics", nil)
		if err != nil {
			return nil, err
		}
		metricsHandler.ServeHTTP(rec, r)

		resp := web.NewResponse(rec.status, rec.body.Bytes())
		for name, values := range rec.header {
			for _, v := range values {
				resp.Headers.Add(name, v)
			}
		}
		return resp, nil
	}, routing.WithName("metrics"))
}

// recorder captures promhttp's output for re-emission as a response.
type recorder struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) { r.status = status }

func (r *recorder) Write(p []byte) (int, error) {
	return r.body.Write(p)
}
