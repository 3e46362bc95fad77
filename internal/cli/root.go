package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"photo-rater/internal/startup"
)

// NewRootCmd builds the photo-rater command tree. With no subcommand it
// serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo-rater",
		Short: "Photo rating service",
		Long: `photo-rater takes photos dropped into images_raw/, partitions them for
rating, serves them to authenticated raters over HTTP and files each rated
photo under images_rated/<rating>/.

Configuration is read from the environment and from a .env file in the
working directory, if present.`,
		Version:      startup.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newHashPasswordCmd())

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
