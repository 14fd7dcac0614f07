// Package partition parses ESP32 partition tables (partitions.csv) and
// resolves the flash offsets of the application and filesystem regions.
//
// Offsets are normalized to lower-case 0x-prefixed hexadecimal strings while
// keeping their numeric value, so the lowest application candidate can be
// selected. Resolution runs two explicit passes: the preferred app subtypes
// (factory, ota_0) first, then any app row.
package partition
