package partition

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// resolve parses the table text and resolves its offsets.
func resolve(t *testing.T, text string) (Offsets, error) {
	t.Helper()

	table, err := Parse(strings.NewReader(text))
	require.NoError(t, err)

	return table.Resolve()
}

// TestParseOffset covers decimal, hexadecimal, blank and malformed offsets.
func TestParseOffset(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"0x10000":   "0x10000",
		"0xABCDEF":  "0xabcdef",
		" 0x9000 ":  "0x9000",
		"65536":     "0x10000",
		"0":         "0x0",
		"0X1F":      "0x1f",
		"0x":        "0x",
		"0xnothex":  "0xnothex",
		"0x0010000": "0x10000",
	}
	for in, want := range cases {
		got, ok, err := ParseOffset(in)
		require.NoError(t, err, in)
		require.True(t, ok, in)
		require.Equal(t, want, got.Hex, in)
	}

	_, ok, err := ParseOffset("   ")
	require.NoError(t, err)
	require.False(t, ok)

	for _, in := range []string{"1M", "4K", "abc", "-1", "1.5"} {
		_, _, err = ParseOffset(in)
		require.ErrorIs(t, err, ErrMalformedOffset, in)
	}

	verbatim, _, err := ParseOffset("0xzz")
	require.NoError(t, err)
	require.False(t, verbatim.Numeric)
}

// TestParse_SkipsCommentsAndPadsShortLines checks tolerant record handling.
func TestParse_SkipsCommentsAndPadsShortLines(t *testing.T) {
	t.Parallel()

	text := `# Name,   Type, SubType, Offset,  Size, Flags
   # indented comment

nvs,      data, nvs,     0x9000,  0x5000,
short
app0,     APP,  Factory, 0x10000, 0x140000, encrypted
`

	table, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	require.Equal(t, "nvs", table.Rows[0].Name)
	require.Equal(t, "0x9000", table.Rows[0].Offset.Hex)

	require.Equal(t, "short", table.Rows[1].Name)
	require.False(t, table.Rows[1].HasOffset)

	require.Equal(t, "app", table.Rows[2].Type)
	require.Equal(t, "factory", table.Rows[2].Subtype)
	require.Equal(t, "encrypted", table.Rows[2].Flags)
	require.Equal(t, 6, table.Rows[2].Line)
}

// TestParse_MalformedOffset verifies that any unparseable offset fails the parse.
func TestParse_MalformedOffset(t *testing.T) {
	t.Parallel()

	_, err := Parse(strings.NewReader("nvs, data, nvs, 1M, 0x5000\n"))
	require.ErrorIs(t, err, ErrMalformedOffset)
	require.Contains(t, err.Error(), "nvs")
}

// TestResolve_SingleRowsIndependentOfOrder returns the only app and fs offsets regardless of layout.
func TestResolve_SingleRowsIndependentOfOrder(t *testing.T) {
	t.Parallel()

	tables := []string{
		"app0, app, factory, 0x10000, 1M\nspiffs, data, spiffs, 0x290000, 0x170000\n",
		"# fs first\n\nspiffs, data, spiffs, 0x290000, 0x170000\n\n# app next\napp0, app, factory, 0x10000, 1M\n",
		"nvs, data, nvs, 0x9000, 0x5000\nspiffs, data, spiffs, 2686976, 0x170000\nphy, data, phy, 0xf000, 0x1000\napp0, app, factory, 65536, 1M\n",
	}
	for _, text := range tables {
		offsets, err := resolve(t, text)
		require.NoError(t, err)
		require.Equal(t, "0x10000", offsets.App.Hex)
		require.Equal(t, "0x290000", offsets.FS.Hex)
		require.Equal(t, "app0", offsets.AppPartition)
		require.Equal(t, "spiffs", offsets.FSPartition)
	}
}

// TestResolve_LowestPreferredApp picks the lowest of several preferred app rows.
func TestResolve_LowestPreferredApp(t *testing.T) {
	t.Parallel()

	offsets, err := resolve(t, `app1, app, ota_0, 0x20000, 1M
app0, app, factory, 0x10000, 1M
fs, data, littlefs, 0x300000, 1M
`)
	require.NoError(t, err)
	require.Equal(t, "0x10000", offsets.App.Hex)
}

// TestResolve_PreferredBeatsLowerGenericApp ignores generic app rows when a preferred one exists.
func TestResolve_PreferredBeatsLowerGenericApp(t *testing.T) {
	t.Parallel()

	offsets, err := resolve(t, `test, app, test, 0x8000, 1M
app0, app, ota_0, 0x20000, 1M
fs, data, spiffs, 0x300000, 1M
`)
	require.NoError(t, err)
	require.Equal(t, "0x20000", offsets.App.Hex)
}

// TestResolve_FallbackToAnyApp uses a generic app row when no preferred subtype exists.
func TestResolve_FallbackToAnyApp(t *testing.T) {
	t.Parallel()

	offsets, err := resolve(t, `app1, app, ota_1, 0x30000, 1M
app9, app, test, 0x20000, 1M
fs, data, spiffs, 0x300000, 1M
`)
	require.NoError(t, err)
	require.Equal(t, "0x20000", offsets.App.Hex)
	require.Equal(t, "app9", offsets.AppPartition)
}

// TestResolve_LastFilesystemRowWins keeps the later of two filesystem rows.
func TestResolve_LastFilesystemRowWins(t *testing.T) {
	t.Parallel()

	offsets, err := resolve(t, `app0, app, factory, 0x10000, 1M
first, data, littlefs, 0x200000, 1M
second, data, littlefs, 0x300000, 1M
`)
	require.NoError(t, err)
	require.Equal(t, "0x300000", offsets.FS.Hex)
	require.Equal(t, "second", offsets.FSPartition)
}

// TestResolve_RowsWithoutOffsetAreIgnored skips blank offsets during resolution.
func TestResolve_RowsWithoutOffsetAreIgnored(t *testing.T) {
	t.Parallel()

	_, err := resolve(t, `app0, app, factory, , 1M
fs, data, spiffs, 0x300000, 1M
`)
	require.ErrorIs(t, err, ErrMissingAppPartition)
}

// TestResolve_MissingPartitions reports missing app and fs rows.
func TestResolve_MissingPartitions(t *testing.T) {
	t.Parallel()

	_, err := resolve(t, "nvs, data, nvs, 0x9000\nfs, data, spiffs, 0x300000\n")
	require.ErrorIs(t, err, ErrMissingAppPartition)

	_, err = resolve(t, "app0, app, factory, 0x10000\nnvs, data, nvs, 0x9000\n")
	require.ErrorIs(t, err, ErrMissingFSPartition)

	// The app check runs first.
	_, err = resolve(t, "nvs, data, nvs, 0x9000\n")
	require.ErrorIs(t, err, ErrMissingAppPartition)
}

// TestResolve_VerbatimOffsets keeps a verbatim fs offset but rejects a verbatim app offset.
func TestResolve_VerbatimOffsets(t *testing.T) {
	t.Parallel()

	offsets, err := resolve(t, "app0, app, factory, 0x10000\nfs, data, spiffs, 0xzz\n")
	require.NoError(t, err)
	require.Equal(t, "0xzz", offsets.FS.Hex)

	_, err = resolve(t, "app0, app, factory, 0xzz\nfs, data, spiffs, 0x300000\n")
	require.ErrorIs(t, err, ErrMalformedOffset)
}

// TestResolveFile reads the table through afero.
func TestResolveFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := filepath.Join("project", DefaultFilename)
	require.NoError(t, afero.WriteFile(fs, path, []byte("app0, app, factory, 0x10000\nfs, data, spiffs, 0x300000\n"), 0o644))

	offsets, err := ResolveFile(fs, path)
	require.NoError(t, err)
	require.Equal(t, "0x10000", offsets.App.Hex)

	_, err = ResolveFile(fs, "missing.csv")
	require.Error(t, err)
}
