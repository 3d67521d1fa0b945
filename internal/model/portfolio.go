package model

import (
	"encoding/json"
	"time"
)

// BlockType enumerates the closed set of content block kinds.
type BlockType string

const (
	BlockTypeHero       BlockType = "hero"
	BlockTypeAbout      BlockType = "about"
	BlockTypeProjects   BlockType = "projects"
	BlockTypeSkills     BlockType = "skills"
	BlockTypeExperience BlockType = "experience"
	BlockTypeContact    BlockType = "contact"
	BlockTypeCustom     BlockType = "custom"
)

// ValidBlockType reports whether t is one of the known block kinds.
func ValidBlockType(t BlockType) bool {
	switch t {
	case BlockTypeHero, BlockTypeAbout, BlockTypeProjects, BlockTypeSkills,
		BlockTypeExperience, BlockTypeContact, BlockTypeCustom:
		return true
	}
	return false
}

// Block is one ordered, typed content unit inside a Portfolio. Content is an
// opaque kind-specific payload; the server never interprets or merges it.
// Blocks are owned transitively through their parent Portfolio and are never
// authorized independently of it.
type Block struct {
	ID       string          `json:"id"`
	Type     BlockType       `json:"type"`
	Position int             `json:"position"`
	Visible  bool            `json:"visible"`
	Content  json.RawMessage `json:"content"`
}

// Portfolio is the versioned, owned unit of editable content. Version never
// decreases and increases by exactly 1 per accepted mutation; OwnerID is
// immutable after creation.
type Portfolio struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Blocks    []Block   `json:"blocks"`
	Version   int64     `json:"version"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
