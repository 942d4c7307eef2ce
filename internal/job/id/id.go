// Package id provides unique identifier generation for jobs.
package id

import "github.com/google/uuid"

// Prefix starts every job ID.
const Prefix = "gif-"

// Generate creates a new unique job ID.
// Example: gif-9b2f6c1e-3c0b-4d5e-8f1a-2b7c9d0e4f6a
func Generate() string {
	return Prefix + uuid.NewString()
}

// Valid reports whether s looks like an ID produced by Generate.
func Valid(s string) bool {
	if len(s) <= len(Prefix) || s[:len(Prefix)] != Prefix {
		return false
	}
	return uuid.Validate(s[len(Prefix):]) == nil
}
