// Package testsupport holds fixtures shared by package tests: isolated
// configs with stubbed encoders, image and byte fixtures, and store helpers.
package testsupport
