// Package firmware contains the domain types of a merged firmware image.
//
// It defines Chip (the target family and its default load offsets), Layout
// (the ordered offset/file pairs handed to the merge tool) and Manifest (the
// record of a completed merge).
package firmware
