package firmware

import "time"

// Host identifies the machine and user that produced a merge.
type Host struct {
	// Hostname is the machine name where the merge ran.
	Hostname string
	// Username is the system user who ran the build.
	Username string
}

// ManifestEntry describes one image inside a merged firmware.
type ManifestEntry struct {
	// Role identifies the image.
	Role Role
	// Offset is the load address of the image.
	Offset string
	// Path is the source file of the image.
	Path string
	// Size is the image size in bytes.
	Size int64
	// Checksum is the base64-encoded SHA-512 of the image.
	Checksum string
}

// Manifest records a completed merge.
type Manifest struct {
	// BuildID uniquely identifies the merge run.
	BuildID string
	// CreatedAt is when the merge finished.
	CreatedAt time.Time
	// ToolVersion is the version of fw-merge that produced the image.
	ToolVersion string
	// Chip is the family passed to the merge tool.
	Chip Chip
	// OutputPath is the combined image.
	OutputPath string
	// Host is who produced the image, if it could be detected.
	Host *Host
	// Entries are listed in merge order.
	Entries []ManifestEntry
}

