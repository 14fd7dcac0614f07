// Package integration holds end-to-end tests that run the merge pipeline
// against real processes.
package integration
