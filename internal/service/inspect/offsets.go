package inspect

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/oshokin/fw-merge/internal/config"
	"github.com/oshokin/fw-merge/internal/domain/firmware"
	"github.com/oshokin/fw-merge/internal/logger"
	"github.com/oshokin/fw-merge/internal/partition"
)

// Options contains inputs for the inspection commands.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// Flags carries command-line overrides registered with config.RegisterFlags.
	Flags *pflag.FlagSet
	// Out receives the report.
	Out io.Writer
	// FS is the filesystem to read from, the OS filesystem when nil.
	FS afero.Fs
}

const (
	// tabPadding separates report columns.
	tabPadding = 2
	// noOffset is printed for rows without an offset.
	noOffset = "-"
)

// RunOffsets prints the partition table and the offsets the merge would use.
func RunOffsets(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "offsets")

	cfg, err := config.Load(opts.ConfigPath, opts.Flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	fs := opts.filesystem()
	path := cfg.PartitionsPath()

	logger.DebugKV(ctx, "Reading partition table", "path", path)

	table, err := partition.ParseFile(fs, path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(opts.Out, 0, 0, tabPadding, ' ', 0)

	_, _ = fmt.Fprintln(w, "LINE\tNAME\tTYPE\tSUBTYPE\tOFFSET\tSIZE\tFLAGS")

	for _, row := range table.Rows {
		offset := noOffset
		if row.HasOffset {
			offset = row.Offset.Hex
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Line, row.Name, row.Type, row.Subtype, offset, row.Size, row.Flags)
	}

	if err = w.Flush(); err != nil {
		return err
	}

	offsets, err := table.Resolve()
	if err != nil {
		return fmt.Errorf("resolve offsets from %s: %w", path, err)
	}

	chip, _ := firmware.ParseChip(cfg.Chip)

	bootloader := cfg.BootloaderOffset
	if bootloader == "" {
		bootloader = chip.BootloaderOffset()
	}

	partitions := cfg.PartitionsOffset
	if partitions == "" {
		partitions = firmware.DefaultPartitionsOffset
	}

	w = tabwriter.NewWriter(opts.Out, 0, 0, tabPadding, ' ', 0)

	_, _ = fmt.Fprintln(opts.Out)
	_, _ = fmt.Fprintf(w, "chip\t%s\n", chip)
	_, _ = fmt.Fprintf(w, "bootloader\t%s\n", bootloader)
	_, _ = fmt.Fprintf(w, "partitions\t%s\n", partitions)
	_, _ = fmt.Fprintf(w, "application\t%s\t(%s)\n", offsets.App.Hex, offsets.AppPartition)
	_, _ = fmt.Fprintf(w, "filesystem\t%s\t(%s)\n", offsets.FS.Hex, offsets.FSPartition)

	return w.Flush()
}

// filesystem returns the configured filesystem or the OS one.
func (o *Options) filesystem() afero.Fs {
	if o.FS != nil {
		return o.FS
	}

	return afero.NewOsFs()
}
