package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/oshokin/fw-merge/internal/config"
	"github.com/oshokin/fw-merge/internal/logger"
	"github.com/oshokin/fw-merge/internal/repository/manifest"
)

// RunManifest prints the manifest written by the last successful merge.
func RunManifest(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "manifest")

	cfg, err := config.Load(opts.ConfigPath, opts.Flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	repo := manifest.NewFileRepository(opts.filesystem(), manifest.PathFor(cfg.OutputPath()))

	err = printManifest(ctx, opts.Out, repo)
	if errors.Is(err, manifest.ErrNotFound) {
		logger.WarnKV(ctx, "No merge has been recorded yet", "path", repo.Path())
	}

	return err
}

// printManifest renders the manifest stored in repo.
func printManifest(ctx context.Context, out io.Writer, repo manifest.Repository) error {
	doc, err := repo.Load(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)

	_, _ = fmt.Fprintf(w, "build id\t%s\n", doc.BuildID)
	_, _ = fmt.Fprintf(w, "created at\t%s\n", doc.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "tool version\t%s\n", doc.ToolVersion)
	_, _ = fmt.Fprintf(w, "chip\t%s\n", doc.Chip)
	_, _ = fmt.Fprintf(w, "output\t%s\n", doc.OutputPath)

	if doc.Host != nil {
		_, _ = fmt.Fprintf(w, "host\t%s@%s\n", doc.Host.Username, doc.Host.Hostname)
	}

	if err = w.Flush(); err != nil {
		return err
	}

	w = tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(w, "ROLE\tOFFSET\tSIZE\tPATH\tSHA512")

	for _, entry := range doc.Entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			entry.Role, entry.Offset, entry.Size, entry.Path, entry.Checksum)
	}

	return w.Flush()
}
