package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photo-rater/internal/auth"
	"photo-rater/internal/handlers"
	"photo-rater/internal/logging"
	"photo-rater/internal/media"
	"photo-rater/internal/memory"
	"photo-rater/internal/metrics"
	"photo-rater/internal/middleware"
	"photo-rater/internal/scheduler"
	"photo-rater/internal/startup"
)

const (
	shutdownTimeout    = 30 * time.Second
	collectorInterval  = 30 * time.Second
	httpServiceTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the rating API and the background jobs",
		Long: `Starts the HTTP API raters use together with the ingestion, thumbnail,
archive and (when EXPORT_INTERVAL is set) export jobs. Each job runs once at
start and then on its interval. Prometheus metrics are served on
METRICS_PORT unless METRICS_ENABLED=false.`,
		Example: `  # Serve with settings from the environment or .env
  photo-rater serve

  # Serve on another port
  PORT=8080 photo-rater serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return err
	}

	credentials, err := auth.NewCredentials(config.RaterUsername, config.RaterPassword, config.RaterUsers)
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return err
	}
	tokens, err := auth.NewTokenManager(config.JWTSecret, config.TokenTTL)
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return err
	}

	memory.ConfigureFromEnv()

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, thumbnails use imaging: %v", err)
	}
	defer media.ShutdownVips()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, config, false)
	if err != nil {
		logging.Error("Startup failed: %v", err)
		return err
	}
	defer a.Close()

	h := handlers.New(handlers.Config{
		Ratings:     a.ratings,
		Credentials: credentials,
		Tokens:      tokens,
		History:     a.db,
		Jobs:        a.scheduler,
	})

	handler, err := buildHandler(h, config)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	a.scheduler.AddService(scheduler.NewHTTPService("http-server", srv, httpServiceTimeout))
	a.scheduler.AddService(a.memory)

	if config.MetricsEnabled {
		metricsSrv := &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           h.MetricsRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		a.scheduler.AddService(scheduler.NewHTTPService("metrics-server", metricsSrv, httpServiceTimeout))
	}
	a.scheduler.AddService(metrics.NewCollector(a.ratings, collectorInterval))

	metrics.InitializeMetrics(a.scheduler.Jobs())
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)
	startup.LogSchedulerInit(a.jobInfo())

	go handleShutdown(ctx, cancel)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	done := a.scheduler.ServeBackground(ctx)
	select {
	case err = <-done:
		// the supervisor only stops on its own when a service gave up
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Supervisor stopped: %v", err)
			return err
		}
	case <-ctx.Done():
		err = waitForSupervisor(done)
	}

	startup.LogShutdownComplete()
	return err
}

// buildHandler wraps the router in compression, metrics and access logging.
func buildHandler(h *handlers.Handlers, config *startup.Config) (http.Handler, error) {
	router := h.Router()
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	compress, err := middleware.Compression(middleware.DefaultCompressionConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to set up compression: %w", err)
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := compress(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	return middleware.Logger(loggingConfig)(handler), nil
}

func handleShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
		startup.LogShutdownStep("Stopping HTTP servers and jobs")
		cancel()
	case <-ctx.Done():
	}
}

func waitForSupervisor(done <-chan error) error {
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		startup.LogShutdownStepComplete("HTTP servers and jobs stopped")
		return nil
	case <-time.After(shutdownTimeout):
		logging.Warn("Services did not stop within %v", shutdownTimeout)
		return errors.New("shutdown timed out")
	}
}
