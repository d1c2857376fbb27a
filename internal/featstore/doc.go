// Package featstore persists feature matrices in append-only archives.
//
// Each matrix is split into chunks of a fixed number of frames and every
// chunk is compressed as an independent zstd frame. A matrix is addressed by
// its storage key: the byte offset of its first chunk followed by the
// compressed size of each chunk, comma separated. Any frame range can be
// decoded by reading only the chunks that cover it.
//
// One archive has exactly one writer. Extraction jobs each own a separate
// archive file, so no locking is needed.
package featstore
