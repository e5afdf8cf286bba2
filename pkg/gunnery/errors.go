package gunnery

import "errors"

// Core failure modes. Both are returned wrapped with context, so callers
// should test them with errors.Is.
var (
	// ErrInvalidProfile reports a profile whose physical constants violate
	// their positivity invariants.
	ErrInvalidProfile = errors.New("gunnery: invalid ballistic profile")

	// ErrNoSolution reports that no elevation in [0°, 90°) lands the shell
	// at the requested range.
	ErrNoSolution = errors.New("gunnery: no elevation solution")
)
