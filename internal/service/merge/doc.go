// Package merge assembles the combined firmware image.
//
// It refreshes the filesystem image, resolves the application and filesystem
// offsets from the partition table, applies the chip's bootloader and
// partition table offsets and asks esptool merge_bin to write the result.
// A project without a filesystem source directory or image completes
// successfully without producing output.
package merge
