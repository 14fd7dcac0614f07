package fsimage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	buildDir  = "/project/.pio/build/esp32dev"
	sourceDir = "/project/data"
)

type builderMock struct{ mock.Mock }

func (b *builderMock) BuildFilesystem(ctx context.Context) error {
	return b.Called(ctx).Error(0)
}

// imageTime is the modification time given to existing images.
var imageTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// writeFile creates a file with the given modification time.
func writeFile(t *testing.T, fs afero.Fs, path string, mtime time.Time) {
	t.Helper()

	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(path), 0o644))
	require.NoError(t, fs.Chtimes(path, mtime, mtime))
}

// TestEnsure_UpToDateImageIsNotRebuilt skips the build when no source is newer.
func TestEnsure_UpToDateImageIsNotRebuilt(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(buildDir, LittleFSImage), imageTime)
	writeFile(t, fs, filepath.Join(sourceDir, "index.html"), imageTime.Add(-time.Hour))
	writeFile(t, fs, filepath.Join(sourceDir, "css", "site.css"), imageTime)

	builder := new(builderMock)
	tracker := NewTracker(fs, buildDir, sourceDir, builder)

	path, ok, err := tracker.Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, filepath.Join(buildDir, LittleFSImage), path)
	builder.AssertNotCalled(t, "BuildFilesystem", mock.Anything)
}

// TestEnsure_NewerSourceTriggersOneRebuild rebuilds exactly once for a newer nested file.
func TestEnsure_NewerSourceTriggersOneRebuild(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	image := filepath.Join(buildDir, SPIFFSImage)
	writeFile(t, fs, image, imageTime)
	writeFile(t, fs, filepath.Join(sourceDir, "index.html"), imageTime.Add(-time.Hour))
	writeFile(t, fs, filepath.Join(sourceDir, "img", "logo.png"), imageTime.Add(time.Second))

	builder := new(builderMock)
	builder.On("BuildFilesystem", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		writeFile(t, fs, image, imageTime.Add(time.Minute))
	}).Once()

	tracker := NewTracker(fs, buildDir, sourceDir, builder)

	state, err := tracker.Inspect()
	require.NoError(t, err)
	require.True(t, state.IsStale)

	path, ok, err := tracker.Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, image, path)
	builder.AssertNumberOfCalls(t, "BuildFilesystem", 1)

	// Sources are now older than the image.
	state, err = tracker.Inspect()
	require.NoError(t, err)
	require.False(t, state.IsStale)
}

// TestEnsure_MissingImageIsBuilt builds when the image does not exist and prefers littlefs afterwards.
func TestEnsure_MissingImageIsBuilt(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(sourceDir, "index.html"), imageTime)

	builder := new(builderMock)
	builder.On("BuildFilesystem", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		writeFile(t, fs, filepath.Join(buildDir, LittleFSImage), imageTime)
	}).Once()

	path, ok, err := NewTracker(fs, buildDir, sourceDir, builder).Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, filepath.Join(buildDir, LittleFSImage), path)
	builder.AssertExpectations(t)
}

// TestEnsure_NoSourceDir returns the existing image or nothing, never building.
func TestEnsure_NoSourceDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	builder := new(builderMock)
	tracker := NewTracker(fs, buildDir, sourceDir, builder)

	path, ok, err := tracker.Ensure(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, path)

	image := filepath.Join(buildDir, SPIFFSImage)
	writeFile(t, fs, image, imageTime)

	path, ok, err = tracker.Ensure(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, image, path)

	builder.AssertNotCalled(t, "BuildFilesystem", mock.Anything)
}

// TestEnsure_BuildFailure wraps the builder error.
func TestEnsure_BuildFailure(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(sourceDir, "index.html"), imageTime)

	builder := new(builderMock)
	builder.On("BuildFilesystem", mock.Anything).Return(errors.New("exit status 1")).Once()

	_, _, err := NewTracker(fs, buildDir, sourceDir, builder).Ensure(context.Background())
	require.ErrorIs(t, err, ErrFilesystemBuildFailed)
	require.Contains(t, err.Error(), "exit status 1")
}

// TestEnsure_ImageMissingAfterBuild fails when the build produced no image.
func TestEnsure_ImageMissingAfterBuild(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(sourceDir, "index.html"), imageTime)

	builder := new(builderMock)
	builder.On("BuildFilesystem", mock.Anything).Return(nil).Once()

	_, ok, err := NewTracker(fs, buildDir, sourceDir, builder).Ensure(context.Background())
	require.ErrorIs(t, err, ErrFilesystemImageMissing)
	require.False(t, ok)
}

// TestInspect_PrefersLittleFS picks littlefs.bin over spiffs.bin.
func TestInspect_PrefersLittleFS(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, filepath.Join(buildDir, SPIFFSImage), imageTime)
	writeFile(t, fs, filepath.Join(buildDir, LittleFSImage), imageTime)

	state, err := NewTracker(fs, buildDir, sourceDir, nil).Inspect()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(buildDir, LittleFSImage), state.CandidatePath)
	require.True(t, state.Exists)
	require.False(t, state.SourceDirExists)
	require.False(t, state.IsStale)
}

// linkedProject lays out a project on disk with an image dated one hour ahead,
// so links created by the test are older than the image.
func linkedProject(t *testing.T) (root, build string, built time.Time) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on Windows")
	}

	root = t.TempDir()
	build = filepath.Join(root, ".pio", "build", "esp32dev")
	built = time.Now().Add(time.Hour)
	writeFile(t, afero.NewOsFs(), filepath.Join(build, LittleFSImage), built)

	return root, build, built
}

// TestInspect_FollowsLinkedSourceDir judges a linked data directory by the files behind it.
func TestInspect_FollowsLinkedSourceDir(t *testing.T) {
	t.Parallel()

	root, build, built := linkedProject(t)
	fs := afero.NewOsFs()

	writeFile(t, fs, filepath.Join(root, "web", "dist", "index.html"), built.Add(time.Hour))
	require.NoError(t, os.Symlink(filepath.Join(root, "web", "dist"), filepath.Join(root, "data")))

	state, err := NewTracker(fs, build, filepath.Join(root, "data"), nil).Inspect()
	require.NoError(t, err)
	require.True(t, state.SourceDirExists)
	require.True(t, state.IsStale)
}

// TestInspect_FollowsLinkedSourceFiles compares linked files by their targets.
func TestInspect_FollowsLinkedSourceFiles(t *testing.T) {
	t.Parallel()

	root, build, built := linkedProject(t)
	fs := afero.NewOsFs()
	data := filepath.Join(root, "data")
	target := filepath.Join(root, "web", "page.html")

	writeFile(t, fs, target, built.Add(-2*time.Hour))
	writeFile(t, fs, filepath.Join(data, "index.html"), built.Add(-2*time.Hour))
	require.NoError(t, os.Symlink(target, filepath.Join(data, "page.html")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.html"), filepath.Join(data, "dangling.html")))

	tracker := NewTracker(fs, build, data, nil)

	state, err := tracker.Inspect()
	require.NoError(t, err)
	require.False(t, state.IsStale)

	// Touch the target only; the link itself keeps its old time.
	later := built.Add(time.Hour)
	require.NoError(t, os.Chtimes(target, later, later))

	state, err = tracker.Inspect()
	require.NoError(t, err)
	require.True(t, state.IsStale)
}
