// Package codec adapts image encoders behind one Encoder interface.
//
// External shells out to cjpeg, cwebp, oxipng and pngquant, resolving each
// from the configured tools directory before PATH. Fallback encodes in-process
// (image/jpeg, image/png and a pure-Go WEBP encoder) for hosts without the
// tools. Both write candidates to hidden siblings of the source and never
// modify the source itself.
//
// Errors carry services markers: ErrToolUnavailable when a binary cannot be
// resolved or started, ErrEncodeFailed when it ran without usable output.
package codec
