package firmware

// Role names the part of the firmware an image provides.
type Role string

const (
	// RoleBootloader is the second stage bootloader.
	RoleBootloader Role = "bootloader"
	// RolePartitions is the binary partition table.
	RolePartitions Role = "partitions"
	// RoleApplication is the application firmware.
	RoleApplication Role = "application"
	// RoleFilesystem is the spiffs or littlefs image.
	RoleFilesystem Role = "filesystem"
)

// Image is one file placed at a flash offset.
type Image struct {
	// Role identifies the image.
	Role Role
	// Offset is the load address as passed to the merge tool.
	Offset string
	// Path is the location of the image file.
	Path string
}

// Layout is the ordered plan for producing the combined image.
type Layout struct {
	// Chip is the target family.
	Chip Chip
	// Images are kept in merge order.
	Images []Image
	// OutputPath is where the combined image is written.
	OutputPath string
}

// NewLayout creates an empty layout for the chip.
func NewLayout(chip Chip, outputPath string) *Layout {
	return &Layout{
		Chip:       chip,
		Images:     make([]Image, 0, 4),
		OutputPath: outputPath,
	}
}

// Add appends an image to the layout.
func (l *Layout) Add(role Role, offset, path string) {
	l.Images = append(l.Images, Image{
		Role:   role,
		Offset: offset,
		Path:   path,
	})
}

// Image returns the image with the given role.
func (l *Layout) Image(role Role) (Image, bool) {
	for _, image := range l.Images {
		if image.Role == role {
			return image, true
		}
	}

	return Image{}, false
}

// Pairs flattens the layout into "offset path offset path ..." arguments.
func (l *Layout) Pairs() []string {
	pairs := make([]string, 0, 2*len(l.Images))
	for _, image := range l.Images {
		pairs = append(pairs, image.Offset, image.Path)
	}

	return pairs
}
