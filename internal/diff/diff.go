// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package diff classifies a branch's draft rows against the published rows
// they replace, field by field.
//
// Rows are paired by lineage id, so a renamed slug shows up as a modified
// field of one entry rather than as an unrelated delete and create.
package diff

import (
	"github.com/google/uuid"

	"handbook/internal/models"
)

// FieldStatus classifies one tracked field.
type FieldStatus string

const (
	FieldAdded     FieldStatus = "added"
	FieldDeleted   FieldStatus = "deleted"
	FieldModified  FieldStatus = "modified"
	FieldUnchanged FieldStatus = "unchanged"
)

// Operation classifies a whole entity.
type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpDeleted Operation = "deleted"
)

// Field is the before/after pair of a tracked field.
type Field struct {
	Status   FieldStatus `json:"status"`
	Current  any         `json:"current"`
	Original any         `json:"original"`
}

// Entry describes how one entity differs from its published version.
// ID is the draft row for created and updated entries and the published
// row for deleted ones.
type Entry struct {
	ID            int64            `json:"id"`
	Type          models.ItemType  `json:"type"`
	Operation     Operation        `json:"operation"`
	Slug          string           `json:"slug"`
	LineageID     uuid.UUID        `json:"lineage_id"`
	ChangedFields map[string]Field `json:"changed_fields"`
}

// Result groups entries by entity kind. Both slices are non-nil.
type Result struct {
	Documents  []Entry `json:"documents"`
	Categories []Entry `json:"categories"`
}

// Empty reports whether the branch changes nothing.
func (r Result) Empty() bool {
	return len(r.Documents) == 0 && len(r.Categories) == 0
}

// All returns categories followed by documents.
func (r Result) All() []Entry {
	all := make([]Entry, 0, len(r.Categories)+len(r.Documents))
	all = append(all, r.Categories...)
	return append(all, r.Documents...)
}

// Compute diffs drafts against baseline for both entity kinds.
func Compute(draftCats, baseCats []models.Category, draftDocs, baseDocs []models.Document) Result {
	return Result{
		Documents:  Documents(draftDocs, baseDocs),
		Categories: Categories(draftCats, baseCats),
	}
}

// Categories diffs category drafts against the published rows they retired.
func Categories(drafts, baseline []models.Category) []Entry {
	return classify(models.ItemCategory, mapRecords(drafts, categoryRecord), mapRecords(baseline, categoryRecord))
}

// Documents diffs document drafts against the published rows they retired.
func Documents(drafts, baseline []models.Document) []Entry {
	return classify(models.ItemDocument, mapRecords(drafts, documentRecord), mapRecords(baseline, documentRecord))
}

type value struct {
	name string
	v    any
}

type record struct {
	id      int64
	lineage uuid.UUID
	slug    string
	fields  []value
}

func categoryRecord(c models.Category) record {
	return record{
		id:      c.ID,
		lineage: c.LineageID,
		slug:    c.Slug,
		fields: []value{
			{"slug", c.Slug},
			{"sidebar_label", c.SidebarLabel},
			{"position", c.Position},
			{"description", c.Description},
		},
	}
}

func documentRecord(d models.Document) record {
	return record{
		id:      d.ID,
		lineage: d.LineageID,
		slug:    d.Slug,
		fields: []value{
			{"slug", d.Slug},
			{"sidebar_label", d.SidebarLabel},
			{"file_order", d.FileOrder},
			{"content", d.Content},
			{"is_public", d.IsPublic},
		},
	}
}

func mapRecords[T any](rows []T, fn func(T) record) []record {
	out := make([]record, len(rows))
	for i, r := range rows {
		out[i] = fn(r)
	}
	return out
}

func classify(kind models.ItemType, drafts, baseline []record) []Entry {
	byLineage := make(map[uuid.UUID]record, len(baseline))
	for _, b := range baseline {
		if _, dup := byLineage[b.lineage]; !dup {
			byLineage[b.lineage] = b
		}
	}

	entries := []Entry{}
	matched := make(map[uuid.UUID]bool, len(drafts))
	for _, d := range drafts {
		orig, ok := byLineage[d.lineage]
		if !ok {
			entries = append(entries, created(kind, d))
			continue
		}
		matched[d.lineage] = true
		entries = append(entries, updated(kind, d, orig))
	}

	for _, b := range baseline {
		if matched[b.lineage] {
			continue
		}
		matched[b.lineage] = true
		entries = append(entries, deleted(kind, b))
	}
	return entries
}

func created(kind models.ItemType, d record) Entry {
	fields := make(map[string]Field, len(d.fields))
	for _, f := range d.fields {
		fields[f.name] = Field{Status: FieldAdded, Current: f.v}
	}
	return Entry{ID: d.id, Type: kind, Operation: OpCreated, Slug: d.slug, LineageID: d.lineage, ChangedFields: fields}
}

func updated(kind models.ItemType, d, orig record) Entry {
	fields := make(map[string]Field, len(d.fields))
	for i, f := range d.fields {
		o := orig.fields[i].v
		status := FieldUnchanged
		if f.v != o {
			status = FieldModified
		}
		fields[f.name] = Field{Status: status, Current: f.v, Original: o}
	}
	return Entry{ID: d.id, Type: kind, Operation: OpUpdated, Slug: d.slug, LineageID: d.lineage, ChangedFields: fields}
}

func deleted(kind models.ItemType, b record) Entry {
	fields := make(map[string]Field, len(b.fields))
	for _, f := range b.fields {
		fields[f.name] = Field{Status: FieldDeleted, Original: f.v}
	}
	return Entry{ID: b.id, Type: kind, Operation: OpDeleted, Slug: b.slug, LineageID: b.lineage, ChangedFields: fields}
}
