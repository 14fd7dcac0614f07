// Package config defines the build environment of a merge and provides
// helpers to load, validate and save it.
//
// Values come from an optional fw-merge.yaml, FWMERGE_* environment variables
// and command-line flags, merged with viper. Validate fills in the PlatformIO
// defaults (partitions.csv, data/, firmware-combined.bin, esptool location).
package config
