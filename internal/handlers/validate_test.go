// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"testing"
)

func TestValidateCategory(t *testing.T) {
	tests := []struct {
		name        string
		slug        string
		label       string
		description string
		wantError   bool
	}{
		{"valid", "guides", "Guides", "How we work", false},
		{"empty fields pass", "", "", "", false},
		{"slug too long", strings.Repeat("a", 101), "Guides", "", true},
		{"label too long", "guides", strings.Repeat("a", 201), "", true},
		{"description too long", "guides", "Guides", strings.Repeat("a", 2001), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateCategory(tt.slug, tt.label, tt.description)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name      string
		slug      string
		label     string
		content   string
		wantError bool
	}{
		{"valid", "intro", "Intro", "# Hello", false},
		{"empty content allowed", "intro", "Intro", "", false},
		{"multibyte label counts runes", "intro", strings.Repeat("あ", 200), "", false},
		{"label too long", "intro", strings.Repeat("a", 201), "", true},
		{"content too long", "intro", "Intro", strings.Repeat("a", 500_001), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateDocument(tt.slug, tt.label, tt.content)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}

func TestValidatePullRequest(t *testing.T) {
	if msg := validatePullRequest("Update docs", "details"); msg != "" {
		t.Errorf("unexpected error: %s", msg)
	}
	if msg := validatePullRequest(strings.Repeat("a", 301), ""); msg == "" {
		t.Error("expected title length error")
	}
	if msg := validatePullRequest("t", strings.Repeat("a", 10_001)); msg == "" {
		t.Error("expected description length error")
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantError bool
	}{
		{"valid", "editor@example.com", "correct-horse", false},
		{"empty email", "", "correct-horse", true},
		{"display name form rejected", "Editor <editor@example.com>", "correct-horse", true},
		{"not an address", "editor", "correct-horse", true},
		{"short password", "editor@example.com", "short", true},
		{"long password", "editor@example.com", strings.Repeat("a", 73), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateCredentials(tt.email, tt.password)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}
