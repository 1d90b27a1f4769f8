package model

import "github.com/google/uuid"

// Neighbor summarizes an entity one relationship away from another entity.
type Neighbor struct {
	RelType        RelationType `json:"rel_type"`
	TargetNodeID   uuid.UUID    `json:"target_node_id"`
	TargetNodeName string       `json:"target_node_name"`
	TargetNodeType EntityType   `json:"target_node_type"`
	TargetFilePath *string      `json:"target_file_path"`
	Outgoing       bool         `json:"outgoing"`
}

// EntityNeighborhood is an entity with all of its direct neighbors.
type EntityNeighborhood struct {
	Entity    *Entity    `json:"entity"`
	Neighbors []Neighbor `json:"neighbors"`
}

// ContextBundle is the expanded context of one search hit.
type ContextBundle struct {
	NodeID      uuid.UUID  `json:"node_id"`
	FilePath    *string    `json:"file_path"`
	Type        EntityType `json:"type"`
	Name        string     `json:"name"`
	CodeSnippet string     `json:"code_snippet"`
	Relations   []Neighbor `json:"relations"`
}

// HasSource reports whether the bundle carries a snippet read from disk.
func (b *ContextBundle) HasSource() bool {
	return b.FilePath != nil && b.CodeSnippet != "" && b.CodeSnippet != NoSourceSnippet && !IsSnippetError(b.CodeSnippet)
}

// GraphSummary counts nodes per entity type and edges per relationship type.
type GraphSummary struct {
	TotalNodes          int                  `json:"total_nodes"`
	TotalRelationships  int                  `json:"total_relationships"`
	NodesByType         map[EntityType]int   `json:"nodes_by_type"`
	RelationshipsByType map[RelationType]int `json:"relationships_by_type"`
}
