package fsimage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/oshokin/fw-merge/internal/logger"
)

const (
	// LittleFSImage is the image written by the littlefs uploader.
	LittleFSImage = "littlefs.bin"
	// SPIFFSImage is the legacy image name.
	SPIFFSImage = "spiffs.bin"
)

var (
	// ErrFilesystemBuildFailed is returned when the external image build fails.
	ErrFilesystemBuildFailed = errors.New("filesystem image build failed")
	// ErrFilesystemImageMissing is returned when no image exists after a build.
	ErrFilesystemImageMissing = errors.New("filesystem image not found after build")
)

// Builder regenerates the filesystem image from its source directory.
type Builder interface {
	BuildFilesystem(ctx context.Context) error
}

// State is the freshness snapshot of the filesystem image.
type State struct {
	// CandidatePath is the image expected to be merged.
	CandidatePath string
	// Exists reports whether CandidatePath is present.
	Exists bool
	// SourceDir is the directory the image is built from.
	SourceDir string
	// SourceDirExists reports whether SourceDir is present.
	SourceDirExists bool
	// IsStale is true when the image is missing or older than a source file.
	IsStale bool
}

// Tracker decides whether the filesystem image must be rebuilt before a merge.
type Tracker struct {
	// fs is the filesystem the image and sources are read from.
	fs afero.Fs
	// buildDir holds the generated image.
	buildDir string
	// sourceDir holds the files packed into the image.
	sourceDir string
	// builder regenerates a stale image.
	builder Builder
}

// NewTracker creates a tracker for images in buildDir built from sourceDir.
func NewTracker(fs afero.Fs, buildDir, sourceDir string, builder Builder) *Tracker {
	return &Tracker{
		fs:        fs,
		buildDir:  filepath.Clean(buildDir),
		sourceDir: filepath.Clean(sourceDir),
		builder:   builder,
	}
}

// Inspect computes the current State without building anything.
func (t *Tracker) Inspect() (*State, error) {
	candidate, exists, err := t.candidate()
	if err != nil {
		return nil, err
	}

	state := &State{
		CandidatePath: candidate,
		Exists:        exists,
		SourceDir:     t.sourceDir,
	}

	state.SourceDirExists, err = afero.DirExists(t.fs, t.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", t.sourceDir, err)
	}

	if !state.SourceDirExists {
		return state, nil
	}

	if !exists {
		state.IsStale = true
		return state, nil
	}

	info, err := t.fs.Stat(candidate)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", candidate, err)
	}

	state.IsStale, err = t.hasNewerSource(info.ModTime())
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Ensure returns a filesystem image ready to merge, rebuilding it first when
// stale. It reports false, without error, when the project has no
// filesystem source directory and no image.
func (t *Tracker) Ensure(ctx context.Context) (string, bool, error) {
	state, err := t.Inspect()
	if err != nil {
		return "", false, err
	}

	if !state.SourceDirExists {
		if state.Exists {
			logger.InfoKV(ctx, "No filesystem source directory, using existing image", "image", state.CandidatePath)
			return state.CandidatePath, true, nil
		}

		logger.InfoKV(ctx, "No filesystem source directory, nothing to merge", "source_dir", state.SourceDir)

		return "", false, nil
	}

	if !state.IsStale {
		logger.InfoKV(ctx, "Filesystem image is up to date", "image", state.CandidatePath)
		return state.CandidatePath, true, nil
	}

	logger.InfoKV(ctx, "Building filesystem image", "source_dir", state.SourceDir)

	if err = t.builder.BuildFilesystem(ctx); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrFilesystemBuildFailed, err)
	}

	candidate, exists, err := t.candidate()
	if err != nil {
		return "", false, err
	}

	if !exists {
		return "", false, fmt.Errorf("%w: neither %s nor %s in %s",
			ErrFilesystemImageMissing, LittleFSImage, SPIFFSImage, t.buildDir)
	}

	return candidate, true, nil
}

// candidate picks the littlefs image when present, the spiffs one otherwise.
// The returned path is the spiffs one when neither exists.
func (t *Tracker) candidate() (string, bool, error) {
	for _, name := range []string{LittleFSImage, SPIFFSImage} {
		path := filepath.Join(t.buildDir, name)

		exists, err := afero.Exists(t.fs, path)
		if err != nil {
			return "", false, fmt.Errorf("stat %s: %w", path, err)
		}

		if exists {
			return path, true, nil
		}
	}

	return filepath.Join(t.buildDir, SPIFFSImage), false, nil
}

// hasNewerSource reports whether any file under the source directory was
// modified strictly after imageTime. The source directory itself may be a
// symlink. Linked files are judged by their targets, linked directories are
// not descended into and dangling links are ignored.
func (t *Tracker) hasNewerSource(imageTime time.Time) (bool, error) {
	newer, err := t.newerIn(t.sourceDir, imageTime)
	if err != nil {
		return false, fmt.Errorf("walk %s: %w", t.sourceDir, err)
	}

	return newer, nil
}

// newerIn checks dir recursively, stopping at the first newer file.
func (t *Tracker) newerIn(dir string, imageTime time.Time) (bool, error) {
	entries, err := afero.ReadDir(t.fs, dir)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		info := entry
		if entry.Mode()&os.ModeSymlink != 0 {
			info, err = t.fs.Stat(path)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}

			if err != nil {
				return false, err
			}

			if info.IsDir() {
				continue
			}
		}

		if !info.IsDir() {
			if info.ModTime().After(imageTime) {
				return true, nil
			}

			continue
		}

		newer, err := t.newerIn(path, imageTime)
		if err != nil || newer {
			return newer, err
		}
	}

	return false, nil
}
