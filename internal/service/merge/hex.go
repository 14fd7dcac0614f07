package merge

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/spf13/afero"

	"github.com/oshokin/fw-merge/internal/domain/firmware"
	"github.com/oshokin/fw-merge/internal/partition"
)

const (
	// hexExtension replaces the image extension of the combined output.
	hexExtension = ".hex"
	// hexLineLength is the number of data bytes per Intel HEX record.
	hexLineLength = 16
)

// hexPathFor returns the Intel HEX path belonging to a combined image.
func hexPathFor(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + hexExtension
}

// imageAddress returns the load address of an image as a 32-bit HEX address.
func imageAddress(image firmware.Image) (uint32, error) {
	address, err := strconv.ParseUint(image.Offset, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%s offset %q: %w", image.Role, image.Offset, partition.ErrMalformedOffset)
	}

	return uint32(address), nil
}

// checkHexAddresses rejects layouts that cannot be rendered as Intel HEX.
func checkHexAddresses(layout *firmware.Layout) error {
	for _, image := range layout.Images {
		if _, err := imageAddress(image); err != nil {
			return err
		}
	}

	return nil
}

// writeHex renders every image of the layout at its offset as Intel HEX.
// Overlapping images are rejected by gohex.
func writeHex(fs afero.Fs, layout *firmware.Layout, path string) error {
	mem := gohex.NewMemory()

	for _, image := range layout.Images {
		address, err := imageAddress(image)
		if err != nil {
			return err
		}

		data, err := afero.ReadFile(fs, image.Path)
		if err != nil {
			return err
		}

		if err = mem.AddBinary(address, data); err != nil {
			return fmt.Errorf("%s at %s: %w", image.Role, image.Offset, err)
		}
	}

	w, err := fs.Create(filepath.Clean(path))
	if err != nil {
		return err
	}

	if err = mem.DumpIntelHex(w, hexLineLength); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}
