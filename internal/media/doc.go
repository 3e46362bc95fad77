// Package media holds the image-level operations: identifiers, format
// detection, thumbnail generation and the on-demand compression ladder.
//
// [Identifier] derives the dedup key from a file's local mtime and name.
// [ThumbnailGenerator] mirrors each partition into its <N>_thumb folder.
// [Compressor] shrinks an oversized image under a byte budget by walking a
// fixed scale and quality ladder, and moves images it cannot shrink into the
// quarantine folder.
package media
