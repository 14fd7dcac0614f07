//go:build mage

// Package main provides build targets for fw-merge using Mage.
//
// Usage:
//
//	mage build            Compile fw-merge to bin/ with version metadata
//	mage test             Run all tests
//	mage testUnit         Run tests without the process integration tests
//	mage lint             Run golangci-lint
//	mage clean            Remove build artifacts
//	mage install          Install fw-merge to GOPATH/bin
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName    = "fw-merge"
	binaryDir     = "bin"
	cmdDir        = "./cmd/fw-merge"
	versionPkg    = "github.com/oshokin/fw-merge/internal/version"
	defaultCommit = "none"
)

// Build compiles the fw-merge binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}

	return sh.RunV("go", "build", "-v",
		"-ldflags", ldflags(),
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestUnit runs tests in short mode, skipping the tests that spawn processes.
func TestUnit() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}

	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)

	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}

	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}

// ldflags injects the version, commit and build time into the version package.
func ldflags() string {
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}

	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil || commit == "" {
		commit = defaultCommit
	}

	vars := []string{
		fmt.Sprintf("-X %s.Version=%s", versionPkg, strings.TrimPrefix(version, "v")),
		fmt.Sprintf("-X %s.Commit=%s", versionPkg, commit),
		fmt.Sprintf("-X %s.BuildTime=%s", versionPkg, time.Now().UTC().Format(time.RFC3339)),
	}

	return "-s -w " + strings.Join(vars, " ")
}
