//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/fw-merge/internal/domain/firmware"
)

// DetectHost gathers host and user information recorded in the merge manifest.
func DetectHost() (*firmware.Host, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &firmware.Host{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
