package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

const maxNameLen = 128

var artifactNamePattern = regexp.MustCompile(`^heat_[a-f0-9-]{36}\.png$`)

// ValidatePatientName sanitizes a patient name; empty stays empty so the
// pipeline can substitute "Unknown".
func ValidatePatientName(name string) (string, error) {
	name = SanitizeString(name)
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", fmt.Errorf("patient name too long (max %d chars)", maxNameLen)
	}
	return name, nil
}

// ValidateRecordID parses a positive record id
func ValidateRecordID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}

// ValidateArtifactName accepts only heatmap names the pipeline produces
func ValidateArtifactName(name string) error {
	if !artifactNamePattern.MatchString(name) {
		return fmt.Errorf("invalid heatmap name")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
