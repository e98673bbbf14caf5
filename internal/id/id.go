// Package id generates short identifiers for tool runs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// runAlphabet keeps run IDs lowercase so they read well in log lines and file names.
	runAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	runIDLength = 12
)

// NewRunID creates a prefixed run identifier, e.g. "build-k3v9q0x2m1ab".
// The prefix names the tool that owns the run.
func NewRunID(prefix string) (string, error) {
	id, err := gonanoid.Generate(runAlphabet, runIDLength)
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustRunID is like NewRunID but panics if generation fails.
// Use this only during command startup where failure should crash the program.
func MustRunID(prefix string) string {
	id, err := NewRunID(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate run ID: %v", err))
	}
	return id
}
