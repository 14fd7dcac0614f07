package firmware

import (
	"slices"
	"strings"
)

// Chip is a recognized ESP32 family name as understood by esptool --chip.
type Chip string

const (
	// ChipESP32 is the original ESP32 and the fallback family.
	ChipESP32 Chip = "esp32"
	// ChipESP32S2 is the ESP32-S2 family.
	ChipESP32S2 Chip = "esp32s2"
	// ChipESP32S3 is the ESP32-S3 family.
	ChipESP32S3 Chip = "esp32s3"
	// ChipESP32C3 is the ESP32-C3 family.
	ChipESP32C3 Chip = "esp32c3"

	// DefaultChip is used when the target family is unknown.
	DefaultChip = ChipESP32

	// DefaultPartitionsOffset is the load offset of the partition table binary.
	DefaultPartitionsOffset = "0x8000"

	// bootloaderOffsetZero and bootloaderOffsetLegacy are the two bootloader load offsets.
	bootloaderOffsetZero   = "0x0"
	bootloaderOffsetLegacy = "0x1000"
)

var (
	// knownChips lists the families the merge tool is invoked with.
	knownChips = []Chip{ChipESP32, ChipESP32S2, ChipESP32S3, ChipESP32C3}
	// zeroBootloaderChips load the second stage bootloader at flash offset 0.
	zeroBootloaderChips = []Chip{ChipESP32S2, ChipESP32S3, ChipESP32C3}
)

// ParseChip normalizes a target identifier. Unknown values fall back to
// DefaultChip; the second result reports whether the value was recognized.
func ParseChip(s string) (Chip, bool) {
	chip := Chip(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(knownChips, chip) {
		return chip, true
	}

	return DefaultChip, false
}

// BootloaderOffset returns the default bootloader load offset of the family.
func (c Chip) BootloaderOffset() string {
	if slices.Contains(zeroBootloaderChips, c) {
		return bootloaderOffsetZero
	}

	return bootloaderOffsetLegacy
}

// String returns the family name.
func (c Chip) String() string {
	return string(c)
}
