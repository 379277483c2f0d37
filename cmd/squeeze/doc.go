// Command squeeze shrinks JPEG, PNG and WEBP images under a directory to a
// target size, remembering processed content so reruns skip it.
package main
