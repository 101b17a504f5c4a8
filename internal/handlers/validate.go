// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Validation limits for request fields.
const (
	maxLabelLen       = 200
	maxSlugLen        = 100
	maxDescriptionLen = 2_000
	maxContentLen     = 500_000
	maxTitleLen       = 300
	maxPRBodyLen      = 10_000
	minPasswordLen    = 8
	maxPasswordLen    = 72 // bcrypt ignores anything longer
)

// validateCategory checks folder inputs and returns the first error found.
// Required-ness is left to the editor service.
func validateCategory(slug, label, description string) string {
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 100 characters)."
	}
	if utf8.RuneCountInString(label) > maxLabelLen {
		return "Label is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 2,000 characters)."
	}
	return ""
}

// validateDocument checks document inputs and returns the first error found.
func validateDocument(slug, label, content string) string {
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 100 characters)."
	}
	if utf8.RuneCountInString(label) > maxLabelLen {
		return "Label is too long (max 200 characters)."
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "Content is too long (max 500,000 characters)."
	}
	return ""
}

// validatePullRequest checks the pull request title and description.
func validatePullRequest(title, description string) string {
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(description) > maxPRBodyLen {
		return "Description is too long (max 10,000 characters)."
	}
	return ""
}

// validateCredentials checks signup input.
func validateCredentials(email, password string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "Email is required."
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "Email is not a valid address."
	}
	if len(password) < minPasswordLen {
		return "Password must be at least 8 characters."
	}
	if len(password) > maxPasswordLen {
		return "Password is too long (max 72 bytes)."
	}
	return ""
}
