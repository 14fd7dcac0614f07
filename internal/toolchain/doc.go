// Package toolchain issues the external commands of the merge pipeline.
//
// PlatformIO rebuilds the filesystem image (buildfs) and Esptool writes the
// combined image (merge_bin). Both run through a Runner; ShellRunner is the
// production implementation built on mage's sh package, reporting non-zero
// exits as *CommandError.
package toolchain
