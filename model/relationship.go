package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationType is the type of a directed edge between two entities.
type RelationType string

const (
	RelationContains               RelationType = "CONTAINS"
	RelationCalls                  RelationType = "CALLS"
	RelationImportsModule          RelationType = "IMPORTS_MODULE"
	RelationImportsName            RelationType = "IMPORTS_NAME"
	RelationImportsAlias           RelationType = "IMPORTS_ALIAS"
	RelationImportsAliasedOriginal RelationType = "IMPORTS_ALIASED_ORIGINAL"
	RelationImportsWildcard        RelationType = "IMPORTS_WILDCARD"
	// RelationRelatedTo is used for any relationship type that is not known.
	RelationRelatedTo RelationType = "RELATED_TO"
)

var relationTypes = map[RelationType]struct{}{
	RelationContains:               {},
	RelationCalls:                  {},
	RelationImportsModule:          {},
	RelationImportsName:            {},
	RelationImportsAlias:           {},
	RelationImportsAliasedOriginal: {},
	RelationImportsWildcard:        {},
	RelationRelatedTo:              {},
}

// ParseRelationType returns the matching RelationType or RelationRelatedTo.
func ParseRelationType(s string) RelationType {
	t := RelationType(s)
	if _, ok := relationTypes[t]; ok {
		return t
	}
	return RelationRelatedTo
}

// Valid reports whether t is one of the known relationship types.
func (t RelationType) Valid() bool {
	_, ok := relationTypes[t]
	return ok
}

// Relationship is a typed directed edge of the code graph.
type Relationship struct {
	SourceID   uuid.UUID    `json:"source_id"`
	TargetID   uuid.UUID    `json:"target_id"`
	Type       RelationType `json:"type"`
	Properties Metadata     `json:"properties,omitempty"`
	CreatedAt  time.Time    `json:"created_at,omitempty"`
}

// RelationshipConnection is a relationship seen from one of its endpoints.
type RelationshipConnection struct {
	Relationship *Relationship `json:"relationship"`
	IsOutgoing   bool          `json:"is_outgoing"`
}
