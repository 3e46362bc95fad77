package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photo-rater/internal/logging"
	"photo-rater/internal/media"
	"photo-rater/internal/startup"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <ingest|thumbnails|archive|export>",
		Short: "Run one background job once and exit",
		Long: `Runs a single pass of one job against BASE_DIR and exits. The job takes
the same locks as it does under serve, so it is safe to run next to a live
server. export runs even when EXPORT_INTERVAL is 0.`,
		Example: `  # Ingest whatever is waiting in images_raw/
  photo-rater run ingest

  # Write a parquet snapshot of every rated image
  photo-rater run export`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: JobNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runJob(ctx, args[0])
		},
	}
}

func runJob(ctx context.Context, name string) error {
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return err
	}

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, thumbnails use imaging: %v", err)
	}
	defer media.ShutdownVips()

	a, err := newApp(ctx, config, true)
	if err != nil {
		logging.Error("Startup failed: %v", err)
		return err
	}
	defer a.Close()

	return runOnce(ctx, a, name)
}

// runOnce runs the named job on an already built app.
func runOnce(ctx context.Context, a *app, name string) error {
	start := time.Now()
	logging.Info("Running %s", name)
	if err := a.scheduler.RunNow(ctx, name); err != nil {
		logging.Error("Job %s failed: %v", name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	logging.Info("Job %s finished in %v", name, time.Since(start))
	return nil
}
