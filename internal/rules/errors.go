package rules

import "errors"

var (
	// ErrInvalidRule indicates a rule definition is incomplete or malformed.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrInvalidSeverity indicates an unknown severity name.
	ErrInvalidSeverity = errors.New("invalid severity")

	// ErrDuplicateRule indicates two rules share a name.
	ErrDuplicateRule = errors.New("duplicate rule name")

	// ErrInvalidPack indicates a rule pack file could not be parsed.
	ErrInvalidPack = errors.New("invalid rule pack")

	// ErrInvalidAllowlist indicates an allowlist file could not be parsed.
	ErrInvalidAllowlist = errors.New("invalid allowlist")
)
