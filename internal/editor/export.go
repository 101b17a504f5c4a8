// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"handbook/internal/gitrepo"
	"handbook/internal/models"
)

// categoryMeta is the Docusaurus _category_.json layout.
type categoryMeta struct {
	Label    string       `json:"label"`
	Position int          `json:"position"`
	Link     categoryLink `json:"link"`
}

type categoryLink struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// frontMatter is the YAML header of an exported document.
type frontMatter struct {
	SidebarLabel    string `yaml:"sidebar_label"`
	SidebarPosition int    `yaml:"sidebar_position"`
	Draft           bool   `yaml:"draft,omitempty"`
}

// Export renders categories and documents as a Docusaurus docs tree: one
// directory with a _category_.json per category and one markdown file per
// document. Rows whose parent is missing from cats are left out together
// with their descendants. Files are sorted by path.
func Export(cats []models.Category, docs []models.Document) ([]gitrepo.File, error) {
	byLineage := make(map[uuid.UUID]models.Category, len(cats))
	for _, c := range cats {
		byLineage[c.LineageID] = c
	}

	dirs := make(map[uuid.UUID]string, len(cats))
	var dirOf func(id uuid.UUID, depth int) (string, bool)
	dirOf = func(id uuid.UUID, depth int) (string, bool) {
		if dir, ok := dirs[id]; ok {
			return dir, dir != ""
		}
		c, ok := byLineage[id]
		if !ok || depth > len(cats) {
			dirs[id] = ""
			return "", false
		}
		dir := c.Slug
		if c.ParentID != nil {
			parent, ok := dirOf(*c.ParentID, depth+1)
			if !ok {
				dirs[id] = ""
				return "", false
			}
			dir = path.Join(parent, c.Slug)
		}
		dirs[id] = dir
		return dir, true
	}

	var files []gitrepo.File
	for _, c := range cats {
		dir, ok := dirOf(c.LineageID, 0)
		if !ok {
			continue
		}
		meta, err := json.MarshalIndent(categoryMeta{
			Label:    c.SidebarLabel,
			Position: c.Position,
			Link:     categoryLink{Type: "generated-index", Description: c.Description},
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode category %s: %w", c.Slug, err)
		}
		files = append(files, gitrepo.File{
			Path:    path.Join(dir, "_category_.json"),
			Content: append(meta, '\n'),
		})
	}

	for _, d := range docs {
		dir := ""
		if d.CategoryID != nil {
			var ok bool
			if dir, ok = dirOf(*d.CategoryID, 0); !ok {
				continue
			}
		}
		content, err := renderDocument(d)
		if err != nil {
			return nil, err
		}
		files = append(files, gitrepo.File{
			Path:    path.Join(dir, d.Slug+".md"),
			Content: content,
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func renderDocument(d models.Document) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{
		SidebarLabel:    d.SidebarLabel,
		SidebarPosition: d.FileOrder,
		Draft:           !d.IsPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("encode front matter %s: %w", d.Slug, err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(d.Content)
	if d.Content != "" && d.Content[len(d.Content)-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
