// Package manifest implements persistence for the merge Manifest.
//
// The FileRepository stores and loads the manifest as YAML next to the
// combined image, so a later run (or a human) can see which images went
// into it, at which offsets and with which checksums.
package manifest
