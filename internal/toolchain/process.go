package toolchain

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
)

// RunningInstances returns the ids of other processes whose executable
// matches the current one.
func RunningInstances() ([]int, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}

	return processesByName(filepath.Base(self))
}

// processesByName lists processes with the given executable name, skipping
// this process.
func processesByName(processName string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	var (
		thisProcessID = os.Getpid()
		pids          []int
	)

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !sameExecutable(process.Executable(), processName) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// sameExecutable compares executable names, ignoring case on Windows.
func sameExecutable(a, b string) bool {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return strings.EqualFold(a, b)
	}

	return a == b
}
