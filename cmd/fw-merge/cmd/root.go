package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fw-merge/internal/config"
	"github.com/oshokin/fw-merge/internal/logger"
	"github.com/oshokin/fw-merge/internal/service/merge"
	"github.com/oshokin/fw-merge/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// rootCmd represents the base command for producing the combined image.
	rootCmd = &cobra.Command{
		Use:   "fw-merge",
		Short: "Merge ESP32 firmware images into a single flashable binary.",
		Long: `Merges the bootloader, partition table, application and filesystem images
of a PlatformIO build into one binary that can be flashed at offset 0x0.

The filesystem image is rebuilt with "platformio run -t buildfs" when any file
in the data directory is newer than it. Application and filesystem offsets are
read from the partition table. A project without a filesystem is not an error:
nothing is merged and the command succeeds.

Settings are read from the configuration file, FWMERGE_* environment variables
and flags, in increasing order of precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &merge.Options{
				ConfigPath: configPath,
				Flags:      cmd.Flags(),
			}

			return merge.Run(ctx, options)
		},
	}
)

// Execute runs the fw-merge CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(offsetsCmd, manifestCmd, initCmd)
}
