package merge

import (
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/oshokin/fw-merge/internal/domain/firmware"
	"github.com/oshokin/fw-merge/internal/logger"
	"github.com/oshokin/fw-merge/internal/repository/manifest"
	"github.com/oshokin/fw-merge/internal/service/common"
	"github.com/oshokin/fw-merge/internal/version"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// checksumFunction is used to fingerprint merged images.
const checksumFunction = crypto.SHA512

var errHashUnavailable = errors.New("hash function unavailable")

// buildManifest records the layout with image sizes and checksums.
func buildManifest(ctx context.Context, fs afero.Fs, layout *firmware.Layout) (*firmware.Manifest, error) {
	buildID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate build id: %w", err)
	}

	host, err := common.DetectHost()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect build host", "error", err)
	}

	doc := &firmware.Manifest{
		BuildID:     buildID.String(),
		CreatedAt:   time.Now().UTC(),
		ToolVersion: version.Short(),
		Chip:        layout.Chip,
		OutputPath:  layout.OutputPath,
		Host:        host,
		Entries:     make([]firmware.ManifestEntry, 0, len(layout.Images)),
	}

	for _, image := range layout.Images {
		contents, err := afero.ReadFile(fs, image.Path)
		if err != nil {
			return nil, err
		}

		checksum, err := fileChecksum(contents)
		if err != nil {
			return nil, err
		}

		doc.Entries = append(doc.Entries, firmware.ManifestEntry{
			Role:     image.Role,
			Offset:   image.Offset,
			Path:     image.Path,
			Size:     int64(len(contents)),
			Checksum: base64.StdEncoding.EncodeToString(checksum),
		})
	}

	return doc, nil
}

// writeManifest builds the manifest of the layout and stores it in repo.
func writeManifest(ctx context.Context, fs afero.Fs, repo manifest.Repository, layout *firmware.Layout) (string, error) {
	doc, err := buildManifest(ctx, fs, layout)
	if err != nil {
		return "", fmt.Errorf("build manifest: %w", err)
	}

	if err = repo.Save(ctx, doc); err != nil {
		return "", err
	}

	return doc.BuildID, nil
}

// fileChecksum returns checksum bytes using checksumFunction.
func fileChecksum(contents []byte) ([]byte, error) {
	if !checksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := checksumFunction.New()
	if _, err := hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
