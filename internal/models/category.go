// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the publication state of a versioned row.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPushed Status = "pushed"
	StatusMerged Status = "merged"
)

// Category is one version of a handbook folder (document_categories row).
// Every edit produces a new row; rows of the same logical category share
// LineageID. ParentID holds the parent category's lineage, nil at the root.
type Category struct {
	ID                int64      `json:"id"`
	LineageID         uuid.UUID  `json:"lineage_id"`
	Slug              string     `json:"slug"`
	SidebarLabel      string     `json:"sidebar_label"`
	Position          int        `json:"position"`
	Description       string     `json:"description"`
	ParentID          *uuid.UUID `json:"parent_id"`
	Status            Status     `json:"status"`
	UserBranchID      *int64     `json:"user_branch_id"`
	IsDeleted         bool       `json:"is_deleted"`
	RetiredByBranchID *int64     `json:"-"`
	LastEditedBy      string     `json:"last_edited_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	Children []Category `json:"children,omitempty"`
	Depth    int        `json:"depth"`
}
