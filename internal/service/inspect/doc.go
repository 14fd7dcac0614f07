// Package inspect implements the read-only reports: the partition table with
// the offsets a merge would use, and the manifest of the last merge.
package inspect
