// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is one version of a handbook page (document_versions row).
// CategoryID holds the owning category's lineage, nil at the root.
type Document struct {
	ID                int64      `json:"id"`
	LineageID         uuid.UUID  `json:"lineage_id"`
	Slug              string     `json:"slug"`
	SidebarLabel      string     `json:"sidebar_label"`
	FileOrder         int        `json:"file_order"`
	Content           string     `json:"content"`
	IsPublic          bool       `json:"is_public"`
	CategoryID        *uuid.UUID `json:"category_id"`
	Status            Status     `json:"status"`
	UserBranchID      *int64     `json:"user_branch_id"`
	IsDeleted         bool       `json:"is_deleted"`
	RetiredByBranchID *int64     `json:"-"`
	LastEditedBy      string     `json:"last_edited_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
