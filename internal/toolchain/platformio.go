package toolchain

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/oshokin/fw-merge/internal/domain/firmware"
	"github.com/oshokin/fw-merge/internal/logger"
)

const (
	// esptoolPackage is the PlatformIO package shipping esptool.py.
	esptoolPackage = "tool-esptoolpy"
	// esptoolScript is the esptool entry point inside the package.
	esptoolScript = "esptool.py"
	// pythonScriptSuffix marks esptool paths run through the interpreter.
	pythonScriptSuffix = ".py"
)

// PlatformIO rebuilds the filesystem image with `platformio run -t buildfs`.
type PlatformIO struct {
	// Runner executes the command.
	Runner Runner
	// Python is the interpreter PlatformIO is installed into.
	Python string
	// ProjectDir is passed with -d so the command works from any directory.
	ProjectDir string
	// Environment selects the PlatformIO environment with -e, if set.
	Environment string
}

// BuildFilesystem runs the PlatformIO buildfs target.
func (p *PlatformIO) BuildFilesystem(ctx context.Context) error {
	return p.Runner.Run(ctx, p.Python, p.BuildFilesystemArgs()...)
}

// BuildFilesystemArgs returns the interpreter arguments of the buildfs command.
func (p *PlatformIO) BuildFilesystemArgs() []string {
	args := []string{"-m", "platformio", "run", "-t", "buildfs"}
	if p.ProjectDir != "" {
		args = append(args, "-d", p.ProjectDir)
	}

	if p.Environment != "" {
		args = append(args, "-e", p.Environment)
	}

	return args
}

// Esptool merges images with `esptool merge_bin`.
type Esptool struct {
	// Runner executes the command.
	Runner Runner
	// Python is the interpreter used for esptool.py scripts.
	Python string
	// Path is esptool.py, or an esptool executable run directly.
	Path string
}

// DefaultEsptoolPath returns the esptool.py location inside a PlatformIO packages directory.
func DefaultEsptoolPath(packagesDir string) string {
	if packagesDir == "" {
		return ""
	}

	return filepath.Join(packagesDir, esptoolPackage, esptoolScript)
}

// MergeBin writes the combined image described by the layout.
func (e *Esptool) MergeBin(ctx context.Context, layout *firmware.Layout) error {
	name, args := e.MergeBinCommand(layout)

	logger.InfoKV(ctx, "Merging images", "output", layout.OutputPath, "chip", layout.Chip.String())
	logger.Debug(ctx, CommandLine(name, args...))

	return e.Runner.Run(ctx, name, args...)
}

// MergeBinCommand returns the executable and arguments of the merge_bin call.
func (e *Esptool) MergeBinCommand(layout *firmware.Layout) (string, []string) {
	args := make([]string, 0, 6+2*len(layout.Images))
	name := e.Path

	if strings.EqualFold(filepath.Ext(e.Path), pythonScriptSuffix) {
		name = e.Python
		args = append(args, e.Path)
	}

	args = append(args, "--chip", layout.Chip.String(), "merge_bin", "-o", layout.OutputPath)
	args = append(args, layout.Pairs()...)

	return name, args
}
