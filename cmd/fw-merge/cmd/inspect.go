package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/fw-merge/internal/service/inspect"
)

var (
	// offsetsCmd prints the partition table and the resolved offsets.
	offsetsCmd = &cobra.Command{
		Use:   "offsets",
		Short: "Print the partition table and the offsets used for merging.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect.RunOffsets(cmd.Context(), inspectOptions(cmd))
		},
	}

	// manifestCmd prints the manifest of the last merge.
	manifestCmd = &cobra.Command{
		Use:   "manifest",
		Short: "Print the manifest written by the last merge.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect.RunManifest(cmd.Context(), inspectOptions(cmd))
		},
	}
)

func inspectOptions(cmd *cobra.Command) *inspect.Options {
	return &inspect.Options{
		ConfigPath: configPath,
		Flags:      cmd.Flags(),
		Out:        cmd.OutOrStdout(),
	}
}
