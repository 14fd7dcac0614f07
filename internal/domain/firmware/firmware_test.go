package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseChip verifies normalization and the fallback for unknown families.
func TestParseChip(t *testing.T) {
	t.Parallel()

	cases := map[string]Chip{
		"esp32":    ChipESP32,
		"ESP32S2":  ChipESP32S2,
		" esp32s3": ChipESP32S3,
		"Esp32C3":  ChipESP32C3,
	}
	for in, want := range cases {
		got, ok := ParseChip(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}

	for _, in := range []string{"", "xyz", "esp32c6", "esp8266"} {
		got, ok := ParseChip(in)
		require.False(t, ok, in)
		require.Equal(t, ChipESP32, got)
	}
}

// TestChipBootloaderOffset checks the per-family bootloader defaults.
func TestChipBootloaderOffset(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0x1000", ChipESP32.BootloaderOffset())
	require.Equal(t, "0x0", ChipESP32S2.BootloaderOffset())
	require.Equal(t, "0x0", ChipESP32S3.BootloaderOffset())
	require.Equal(t, "0x0", ChipESP32C3.BootloaderOffset())

	unknown, _ := ParseChip("xyz")
	require.Equal(t, "0x1000", unknown.BootloaderOffset())
}

// TestLayoutPairs keeps the insertion order of images.
func TestLayoutPairs(t *testing.T) {
	t.Parallel()

	layout := NewLayout(ChipESP32C3, "out.bin")
	layout.Add(RoleBootloader, "0x0", "bootloader.bin")
	layout.Add(RolePartitions, "0x8000", "partitions.bin")
	layout.Add(RoleApplication, "0x10000", "firmware.bin")

	require.Equal(t, []string{
		"0x0", "bootloader.bin",
		"0x8000", "partitions.bin",
		"0x10000", "firmware.bin",
	}, layout.Pairs())

	app, ok := layout.Image(RoleApplication)
	require.True(t, ok)
	require.Equal(t, "firmware.bin", app.Path)

	_, ok = layout.Image(RoleFilesystem)
	require.False(t, ok)
}

