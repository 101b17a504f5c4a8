// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug generates and validates the path segments that address
// handbook categories and documents.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// allowed is the accepted slug alphabet, checked case-insensitively.
	allowed = regexp.MustCompile(`(?i)^[a-z0-9-]+$`)
)

// reserved slugs collide with admin UI routes.
var reserved = map[string]bool{
	"create": true,
	"edit":   true,
	"new":    true,
	"delete": true,
	"update": true,
}

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Validate reports why s cannot be used as a slug, or nil if it can.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("slug is required")
	}
	if !allowed.MatchString(s) {
		return fmt.Errorf("slug %q may only contain letters, digits and hyphens", s)
	}
	if reserved[strings.ToLower(s)] {
		return fmt.Errorf("slug %q is reserved", s)
	}
	return nil
}

// Normalize returns the stored form of a slug: trimmed and lower-cased.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsReserved reports whether s is one of the reserved route words.
func IsReserved(s string) bool {
	return reserved[strings.ToLower(s)]
}

// SplitPath splits "a/b/c" into its non-empty, normalized segments.
func SplitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p = Normalize(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
