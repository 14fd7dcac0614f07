package partition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// DefaultFilename is the partition table looked up in the project directory.
	DefaultFilename = "partitions.csv"

	// TypeApp marks partitions holding an executable image.
	TypeApp = "app"
	// TypeData marks data partitions.
	TypeData = "data"

	// columnCount is the width of a padded record: name, type, subtype, offset, size, flags.
	columnCount = 6

	// commentMarker starts a comment line.
	commentMarker = "#"
)

// Row is one partition entry of the table.
type Row struct {
	// Name is the partition label.
	Name string
	// Type is the lower-cased partition type ("app", "data").
	Type string
	// Subtype is the lower-cased partition subtype ("factory", "ota_0", "spiffs", ...).
	Subtype string
	// Offset is the start address, meaningful only when HasOffset is true.
	Offset Offset
	// HasOffset is false when the table leaves the offset blank.
	HasOffset bool
	// Size is the raw size column.
	Size string
	// Flags is the raw flags column.
	Flags string
	// Line is the line number the row was read from.
	Line int
}

// Table is the ordered list of rows read from one partition table document.
type Table struct {
	// Rows keeps the document order, which matters for last-write-wins resolution.
	Rows []Row
}

// Parse reads a comma-delimited partition table.
// Comment and blank lines are skipped, short lines are padded with empty
// columns and every non-empty offset must be parseable.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	table := new(Table)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read partition table: %w", err)
		}

		line, _ := reader.FieldPos(0)

		cols := pad(record)
		if isSkipped(cols) {
			continue
		}

		row := Row{
			Name:    cols[0],
			Type:    strings.ToLower(cols[1]),
			Subtype: strings.ToLower(cols[2]),
			Size:    cols[4],
			Flags:   cols[5],
			Line:    line,
		}

		row.Offset, row.HasOffset, err = ParseOffset(cols[3])
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", line, row.Name, err)
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ParseFile opens and parses the partition table at path.
func ParseFile(fs afero.Fs, path string) (*Table, error) {
	file, err := fs.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open partition table: %w", err)
	}

	// Read-only handle.
	defer func() {
		_ = file.Close()
	}()

	return Parse(file)
}

// pad trims the record fields into a fixed-width array so short lines never
// cause an out-of-range access.
func pad(record []string) [columnCount]string {
	var cols [columnCount]string

	for i := 0; i < len(record) && i < columnCount; i++ {
		cols[i] = strings.TrimSpace(record[i])
	}

	return cols
}

// isSkipped reports comment lines and lines without any content.
func isSkipped(cols [columnCount]string) bool {
	if strings.HasPrefix(cols[0], commentMarker) {
		return true
	}

	for _, col := range cols {
		if col != "" {
			return false
		}
	}

	return true
}
