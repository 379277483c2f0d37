// Package metadata carries JPEG Exif, XMP and ICC segments from an original
// image onto its re-encoded candidate.
//
// cjpeg and the in-process JPEG encoder drop APP1/APP2 segments, so the
// orchestrator extracts them before encoding and injects them into the
// chosen candidate. WEBP and PNG tools keep their own metadata and are left
// untouched.
package metadata
