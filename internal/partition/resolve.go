package partition

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/afero"
)

var (
	// ErrMissingAppPartition is returned when no app partition has an offset.
	ErrMissingAppPartition = errors.New("app partition not found")
	// ErrMissingFSPartition is returned when no spiffs/littlefs data partition has an offset.
	ErrMissingFSPartition = errors.New("filesystem partition (spiffs/littlefs) not found")
)

var (
	// preferredAppSubtypes are the app subtypes holding the image flashed by default.
	preferredAppSubtypes = []string{"factory", "ota_0"}
	// filesystemSubtypes are the data subtypes holding a filesystem image.
	filesystemSubtypes = []string{"spiffs", "littlefs"}
)

// Offsets holds the resolved start addresses of the merged regions.
type Offsets struct {
	// App is the lowest qualifying application offset.
	App Offset
	// AppPartition is the name of the row App was taken from.
	AppPartition string
	// FS is the offset of the last filesystem row in the table.
	FS Offset
	// FSPartition is the name of the row FS was taken from.
	FSPartition string
}

// Resolve determines the application and filesystem offsets.
//
// The application offset is the lowest among app rows with a preferred
// subtype; only when there is none, the lowest among all app rows. The
// filesystem offset is taken from the last spiffs/littlefs data row.
func (t *Table) Resolve() (Offsets, error) {
	apps, fs, fsFound := t.preferredCandidates()
	if len(apps) == 0 {
		apps = t.appCandidates()
	}

	if len(apps) == 0 {
		return Offsets{}, ErrMissingAppPartition
	}

	if !fsFound {
		return Offsets{}, ErrMissingFSPartition
	}

	app, err := lowest(apps)
	if err != nil {
		return Offsets{}, err
	}

	return Offsets{
		App:          app.Offset,
		AppPartition: app.Name,
		FS:           fs.Offset,
		FSPartition:  fs.Name,
	}, nil
}

// ResolveFile parses the table at path and resolves its offsets.
func ResolveFile(fs afero.Fs, path string) (Offsets, error) {
	table, err := ParseFile(fs, path)
	if err != nil {
		return Offsets{}, err
	}

	return table.Resolve()
}

// preferredCandidates is the first pass: app rows with a preferred subtype,
// and the last filesystem row seen.
func (t *Table) preferredCandidates() ([]Row, Row, bool) {
	var (
		apps    []Row
		fs      Row
		fsFound bool
	)

	for _, row := range t.Rows {
		if !row.HasOffset {
			continue
		}

		if row.Type == TypeApp && slices.Contains(preferredAppSubtypes, row.Subtype) {
			apps = append(apps, row)
		}

		if row.Type == TypeData && slices.Contains(filesystemSubtypes, row.Subtype) {
			fs, fsFound = row, true
		}
	}

	return apps, fs, fsFound
}

// appCandidates is the fallback pass: every app row regardless of subtype.
func (t *Table) appCandidates() []Row {
	var apps []Row

	for _, row := range t.Rows {
		if row.HasOffset && row.Type == TypeApp {
			apps = append(apps, row)
		}
	}

	return apps
}

// lowest returns the candidate with the smallest numeric offset.
// Candidates kept verbatim cannot be ordered and are rejected.
func lowest(rows []Row) (Row, error) {
	var best Row

	for i, row := range rows {
		if !row.Offset.Numeric {
			return Row{}, fmt.Errorf("app partition %s at line %d: %w: %q", row.Name, row.Line, ErrMalformedOffset, row.Offset.Hex)
		}

		if i == 0 || row.Offset.Value < best.Offset.Value {
			best = row
		}
	}

	return best, nil
}
