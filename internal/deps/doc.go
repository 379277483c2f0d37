// Package deps resolves the external encoder binaries squeeze shells out to.
//
// Binaries are looked up in the configured tools directory first and on PATH
// second, so bundled builds of cjpeg, cwebp, oxipng, and pngquant shadow
// system copies.
package deps
