//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectHost ensures hostname and username are detected and non-empty.
func TestDetectHost(t *testing.T) {
	t.Parallel()

	h, err := DetectHost()
	require.NoError(t, err)
	require.NotEmpty(t, h.Hostname)
	require.NotEmpty(t, h.Username)
}
