// Package thumbnail downscales generated images into gallery previews.
//
// The pipeline is a pure bytes-to-bytes transform: decode, fit the longer
// edge under a fixed cap preserving aspect ratio, re-encode as JPEG at a
// fixed quality. A libvips fast path is used when initialized, with a
// pure-Go imaging fallback.
package thumbnail
