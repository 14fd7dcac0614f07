package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/fw-merge/internal/domain/firmware"
)

// Repository defines persistence operations for the merge manifest.
type Repository interface {
	Load(ctx context.Context) (*firmware.Manifest, error)
	Save(ctx context.Context, manifest *firmware.Manifest) error
}

// FileRepository persists the manifest to a YAML file.
type FileRepository struct {
	// fs is the filesystem the manifest lives on.
	fs afero.Fs
	// path is the location of the YAML manifest.
	path string
}

const (
	// manifestExtension replaces the image extension of the combined output.
	manifestExtension = ".yaml"
	// filePermissions is the mode of written manifests.
	filePermissions = 0o644
)

// ErrNotFound is returned when the manifest file does not exist yet.
var ErrNotFound = errors.New("manifest not found")

// document is the on-disk representation of a manifest.
type document struct {
	BuildID     string    `yaml:"build_id"`
	CreatedAt   time.Time `yaml:"created_at"`
	ToolVersion string    `yaml:"tool_version"`
	Chip        string    `yaml:"chip"`
	Output      string    `yaml:"output"`
	Host        *host     `yaml:"host,omitempty"`
	Images      []image   `yaml:"images"`
}

type host struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
}

type image struct {
	Role     string `yaml:"role"`
	Offset   string `yaml:"offset"`
	Path     string `yaml:"path"`
	Size     int64  `yaml:"size"`
	Checksum string `yaml:"sha512"`
}

// PathFor returns the manifest path belonging to a combined image.
func PathFor(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + manifestExtension
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(fs afero.Fs, path string) *FileRepository {
	return &FileRepository{
		fs:   fs,
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the manifest from disk.
func (r *FileRepository) Load(_ context.Context) (*firmware.Manifest, error) {
	contents, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read manifest file: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode manifest file: %w", err)
	}

	return fromDocument(&doc), nil
}

// Save writes the manifest to disk.
func (r *FileRepository) Save(_ context.Context, manifest *firmware.Manifest) error {
	data, err := yaml.Marshal(toDocument(manifest))
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err = afero.WriteFile(r.fs, r.path, data, filePermissions); err != nil {
		return fmt.Errorf("write manifest file: %w", err)
	}

	return nil
}

// fromDocument converts the YAML document into the domain Manifest.
func fromDocument(doc *document) *firmware.Manifest {
	var h *firmware.Host
	if doc.Host != nil {
		h = &firmware.Host{
			Hostname: doc.Host.Hostname,
			Username: doc.Host.Username,
		}
	}

	entries := make([]firmware.ManifestEntry, 0, len(doc.Images))
	for _, img := range doc.Images {
		entries = append(entries, firmware.ManifestEntry{
			Role:     firmware.Role(img.Role),
			Offset:   img.Offset,
			Path:     img.Path,
			Size:     img.Size,
			Checksum: img.Checksum,
		})
	}

	return &firmware.Manifest{
		BuildID:     doc.BuildID,
		CreatedAt:   doc.CreatedAt,
		ToolVersion: doc.ToolVersion,
		Chip:        firmware.Chip(doc.Chip),
		OutputPath:  doc.Output,
		Host:        h,
		Entries:     entries,
	}
}

// toDocument converts the domain Manifest into its YAML document.
func toDocument(manifest *firmware.Manifest) *document {
	var h *host
	if manifest.Host != nil {
		h = &host{
			Hostname: manifest.Host.Hostname,
			Username: manifest.Host.Username,
		}
	}

	images := make([]image, 0, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		images = append(images, image{
			Role:     string(entry.Role),
			Offset:   entry.Offset,
			Path:     entry.Path,
			Size:     entry.Size,
			Checksum: entry.Checksum,
		})
	}

	return &document{
		BuildID:     manifest.BuildID,
		CreatedAt:   manifest.CreatedAt,
		ToolVersion: manifest.ToolVersion,
		Chip:        manifest.Chip.String(),
		Output:      manifest.OutputPath,
		Host:        h,
		Images:      images,
	}
}
