// Package imagefmt tags files with the image formats squeeze can compress.
package imagefmt
