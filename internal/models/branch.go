// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PRStatus tracks where a user branch is in the review lifecycle.
type PRStatus string

const (
	PRStatusNone   PRStatus = "none"
	PRStatusPushed PRStatus = "pushed"
	PRStatusMerged PRStatus = "merged"
	PRStatusClosed PRStatus = "closed"
)

// Branch is a user-scoped collection of draft edits (user_branches row).
// A user has at most one branch that is active with PRStatus none.
type Branch struct {
	ID         int64     `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	BranchName string    `json:"branch_name"`
	IsActive   bool      `json:"is_active"`
	PRStatus   PRStatus  `json:"pr_status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsOpen reports whether the branch still accepts edits.
func (b *Branch) IsOpen() bool {
	return b.IsActive && b.PRStatus == PRStatusNone
}
