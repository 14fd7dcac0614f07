// Package fsimage tracks the freshness of the spiffs/littlefs image.
//
// The image is stale when it is missing or when any file under the source
// directory has a newer modification time. A stale image is rebuilt through
// a Builder before the merge; a project without a source directory simply
// has no filesystem to merge.
package fsimage
