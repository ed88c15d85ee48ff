package errors

import (
	"strings"
	"unicode"
)

// ValidateEntityName validates a table or view name coming from user input.
// It rejects names that could be used for path traversal or injection when
// the name is later embedded in cache keys and file names.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No null bytes
//   - Maximum length of 256 characters
//
// SQL identifier quoting is handled separately by the database layer.
func ValidateEntityName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "entity name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "entity name too long (max 256 characters)")
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "entity name contains invalid control characters")
		}
	}

	return nil
}

// ValidateZoom validates a zoom factor. The diagram supports zoom levels in
// [0.125, 3.0]; anything outside would produce degenerate or enormous
// bitmaps.
func ValidateZoom(zoom float64) error {
	if zoom < 0.125 || zoom > 3.0 {
		return New(ErrCodeInvalidZoom, "zoom %.3f out of range [0.125, 3.0]", zoom)
	}
	return nil
}

// ValidateLayout validates a layout strategy name.
func ValidateLayout(name string) error {
	switch name {
	case "grid", "graph":
		return nil
	}
	return New(ErrCodeInvalidLayout, "unknown layout: %q (want grid or graph)", name)
}

// ValidateFormat validates an output format name.
func ValidateFormat(format string) error {
	switch strings.ToLower(format) {
	case "png", "svg", "json":
		return nil
	}
	return New(ErrCodeInvalidFormat, "unknown output format: %q (want png, svg or json)", format)
}

// ValidateDatabasePath validates a database file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidateDatabasePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "database path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "database path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "database path contains invalid characters")
		}
	}

	return nil
}
