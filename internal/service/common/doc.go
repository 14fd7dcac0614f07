// Package common holds helpers shared by several services.
//
// It detects the current build host (hostname/username) recorded in the
// merge manifest.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
