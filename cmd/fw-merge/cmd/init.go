package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/fw-merge/internal/config"
	"github.com/oshokin/fw-merge/internal/logger"
)

var (
	// force overwrites an existing configuration file.
	force bool

	errConfigExists = errors.New("configuration file already exists")

	// initCmd writes a configuration file with the effective settings.
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the current settings.",
		Long: `Writes the settings resolved from defaults, environment variables and flags
to the configuration file, so later runs need no flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.WithName(cmd.Context(), "init")

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%w: %s (use --force to overwrite)", errConfigExists, configPath)
			}

			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			if err = config.Save(configPath, cfg); err != nil {
				return err
			}

			logger.InfoKV(ctx, "Configuration written", "path", configPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
}
