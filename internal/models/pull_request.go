// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PullRequestState is the review state of a pull request.
type PullRequestState string

const (
	PullRequestOpen   PullRequestState = "open"
	PullRequestMerged PullRequestState = "merged"
)

// ItemType names the kind of entity a pull request item points at.
type ItemType string

const (
	ItemDocument ItemType = "document"
	ItemCategory ItemType = "category"
)

// Valid reports whether t is document or category.
func (t ItemType) Valid() bool {
	return t == ItemDocument || t == ItemCategory
}

// PullRequest bundles a branch's changes for review.
type PullRequest struct {
	ID           int64            `json:"id"`
	UserBranchID int64            `json:"user_branch_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Status       PullRequestState `json:"status"`
	PRURL        string           `json:"pr_url"`
	CreatedBy    uuid.UUID        `json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Items     []PullRequestItem `json:"items,omitempty"`
	Reviewers []Reviewer        `json:"reviewers,omitempty"`
}

// PullRequestItem references one entity row attached to a pull request.
type PullRequestItem struct {
	ID   int64    `json:"id"`
	Type ItemType `json:"type"`
}

// Reviewer is a notified reviewer. UserID is set when the e-mail address
// belongs to a registered user.
type Reviewer struct {
	Email  string     `json:"email"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}
