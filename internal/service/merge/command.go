package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/oshokin/fw-merge/internal/config"
	"github.com/oshokin/fw-merge/internal/domain/firmware"
	"github.com/oshokin/fw-merge/internal/fsimage"
	"github.com/oshokin/fw-merge/internal/logger"
	"github.com/oshokin/fw-merge/internal/partition"
	"github.com/oshokin/fw-merge/internal/repository/manifest"
	"github.com/oshokin/fw-merge/internal/toolchain"
)

// Options contains inputs for the merge entry point.
type Options struct {
	// ConfigPath is an optional path to the settings YAML file.
	ConfigPath string
	// Flags carries command-line overrides registered with config.RegisterFlags.
	Flags *pflag.FlagSet
}

// Dependencies are the collaborators of a merge run.
type Dependencies struct {
	// FS is the filesystem images and the partition table are read from.
	FS afero.Fs
	// Runner executes buildfs and merge_bin.
	Runner toolchain.Runner
}

// Result describes the outcome of a merge run.
type Result struct {
	// Merged is false when the project has no filesystem to merge.
	Merged bool
	// Layout is the merged layout, nil when Merged is false.
	Layout *firmware.Layout
	// Offsets are the offsets resolved from the partition table.
	Offsets partition.Offsets
	// HexPath is the Intel HEX rendering, if written.
	HexPath string
	// ManifestPath is the written manifest, if any.
	ManifestPath string
}

const (
	// bootloaderImage is the second stage bootloader inside the build directory.
	bootloaderImage = "bootloader.bin"
	// partitionsImage is the binary partition table inside the build directory.
	partitionsImage = "partitions.bin"
	// imageExtension is the extension of the application binary.
	imageExtension = ".bin"
)

var (
	// ErrPartitionTableNotFound is returned when the partition table document is absent.
	ErrPartitionTableNotFound = errors.New("partition table not found")
	// ErrMergeToolFailed is returned when merge_bin fails.
	ErrMergeToolFailed = errors.New("merge tool failed")
)

// Run loads the configuration and merges the firmware images.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "fw-merge")

	cfg, err := config.Load(opts.ConfigPath, opts.Flags)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	} else {
		logger.WarnKV(ctx, "Unknown log level, keeping current", "log_level", cfg.LogLevel)
	}

	deps := Dependencies{
		FS:     afero.NewOsFs(),
		Runner: toolchain.NewShellRunner(os.Stdout, os.Stderr),
	}

	result, err := Merge(ctx, cfg, deps)
	if err != nil {
		return err
	}

	if !result.Merged {
		logger.Info(ctx, "No filesystem image to merge, combined image not produced")
		return nil
	}

	logger.InfoKV(ctx, "Combined image ready", "output", result.Layout.OutputPath)

	if image, ok := result.Layout.Image(firmware.RoleFilesystem); ok {
		logger.DebugKV(ctx, "Filesystem image merged", "image", image.Path, "offset", image.Offset)
	}

	return nil
}

// Merge runs the merge pipeline with the given configuration.
func Merge(ctx context.Context, cfg *config.Config, deps Dependencies) (*Result, error) {
	return newMerger(cfg, deps).merge(ctx)
}

// merger holds the collaborators of one merge run.
type merger struct {
	// cfg is the validated build environment.
	cfg *config.Config
	// fs is the filesystem inputs are read from.
	fs afero.Fs
	// tracker keeps the filesystem image fresh.
	tracker *fsimage.Tracker
	// esptool writes the combined image.
	esptool *toolchain.Esptool
}

// newMerger wires the tracker and esptool to the shared runner.
func newMerger(cfg *config.Config, deps Dependencies) *merger {
	builder := &toolchain.PlatformIO{
		Runner:      deps.Runner,
		Python:      cfg.PythonExe,
		ProjectDir:  cfg.ProjectDir,
		Environment: cfg.Environment,
	}

	return &merger{
		cfg:     cfg,
		fs:      deps.FS,
		tracker: fsimage.NewTracker(deps.FS, cfg.BuildDir, cfg.SourceDir(), builder),
		esptool: &toolchain.Esptool{
			Runner: deps.Runner,
			Python: cfg.PythonExe,
			Path:   cfg.Esptool,
		},
	}
}

// merge resolves the layout and invokes the merge tool.
func (m *merger) merge(ctx context.Context) (*Result, error) {
	chip, known := firmware.ParseChip(m.cfg.Chip)
	if !known {
		logger.WarnKV(ctx, "Unrecognized chip, using default", "chip", m.cfg.Chip, "default", chip.String())
	}

	ctx = logger.WithKV(ctx, "chip", chip.String())

	warnIfAlreadyRunning(ctx)

	fsImage, ok, err := m.tracker.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare filesystem image: %w", err)
	}

	if !ok {
		return &Result{}, nil
	}

	tablePath := m.cfg.PartitionsPath()

	exists, err := afero.Exists(m.fs, tablePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", tablePath, err)
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPartitionTableNotFound, tablePath)
	}

	offsets, err := partition.ResolveFile(m.fs, tablePath)
	if err != nil {
		return nil, fmt.Errorf("resolve offsets from %s: %w", tablePath, err)
	}

	logger.InfoKV(ctx, "Resolved partition offsets",
		"app", offsets.App.Hex, "app_partition", offsets.AppPartition,
		"fs", offsets.FS.Hex, "fs_partition", offsets.FSPartition)

	layout := m.layout(chip, offsets, fsImage)

	if m.cfg.WriteHex {
		if err = checkHexAddresses(layout); err != nil {
			return nil, fmt.Errorf("intel hex output: %w", err)
		}
	}

	if err = m.esptool.MergeBin(ctx, layout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMergeToolFailed, err)
	}

	result := &Result{
		Merged:  true,
		Layout:  layout,
		Offsets: offsets,
	}

	m.writeExtras(ctx, result)

	return result, nil
}

// layout orders the images: bootloader, partition table, application and filesystem.
func (m *merger) layout(chip firmware.Chip, offsets partition.Offsets, fsImage string) *firmware.Layout {
	bootloaderOffset := m.cfg.BootloaderOffset
	if bootloaderOffset == "" {
		bootloaderOffset = chip.BootloaderOffset()
	}

	partitionsOffset := m.cfg.PartitionsOffset
	if partitionsOffset == "" {
		partitionsOffset = firmware.DefaultPartitionsOffset
	}

	layout := firmware.NewLayout(chip, m.cfg.OutputPath())
	layout.Add(firmware.RoleBootloader, bootloaderOffset, filepath.Join(m.cfg.BuildDir, bootloaderImage))
	layout.Add(firmware.RolePartitions, partitionsOffset, filepath.Join(m.cfg.BuildDir, partitionsImage))
	layout.Add(firmware.RoleApplication, offsets.App.Hex, filepath.Join(m.cfg.BuildDir, m.cfg.ProgramName+imageExtension))

	if fsImage != "" {
		layout.Add(firmware.RoleFilesystem, offsets.FS.Hex, fsImage)
	}

	return layout
}

// writeExtras renders the optional Intel HEX file and the manifest. The
// combined image already exists, so failures here are reported as warnings.
func (m *merger) writeExtras(ctx context.Context, result *Result) {
	if m.cfg.WriteHex {
		hexPath := hexPathFor(result.Layout.OutputPath)
		if err := writeHex(m.fs, result.Layout, hexPath); err != nil {
			logger.WarnKV(ctx, "Unable to write Intel HEX", "path", hexPath, "error", err)
		} else {
			result.HexPath = hexPath
			logger.InfoKV(ctx, "Intel HEX written", "path", hexPath)
		}
	}

	if m.cfg.WriteManifest {
		repo := manifest.NewFileRepository(m.fs, manifest.PathFor(result.Layout.OutputPath))

		buildID, err := writeManifest(ctx, m.fs, repo, result.Layout)
		if err != nil {
			logger.WarnKV(ctx, "Unable to write manifest", "path", repo.Path(), "error", err)
			return
		}

		result.ManifestPath = repo.Path()
		logger.InfoKV(ctx, "Manifest written", "path", repo.Path(), "build_id", buildID)
	}
}

// warnIfAlreadyRunning logs other fw-merge processes, which may race on the
// same build directory.
func warnIfAlreadyRunning(ctx context.Context) {
	pids, err := toolchain.RunningInstances()
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	if len(pids) > 0 {
		logger.WarnKV(ctx, "Another fw-merge process is running", "pids", pids)
	}
}
