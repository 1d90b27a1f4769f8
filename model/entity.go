package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the kind of a code graph node.
type EntityType string

const (
	EntityTypeFile               EntityType = "File"
	EntityTypeFunction           EntityType = "Function"
	EntityTypeClass              EntityType = "Class"
	EntityTypeVariable           EntityType = "Variable"
	EntityTypeModule             EntityType = "Module"
	EntityTypeImportedName       EntityType = "ImportedName"
	EntityTypeExternalCallTarget EntityType = "ExternalCallTarget"
	EntityTypeUnknown            EntityType = "Unknown"
)

var entityTypes = map[EntityType]struct{}{
	EntityTypeFile:               {},
	EntityTypeFunction:           {},
	EntityTypeClass:              {},
	EntityTypeVariable:           {},
	EntityTypeModule:             {},
	EntityTypeImportedName:       {},
	EntityTypeExternalCallTarget: {},
	EntityTypeUnknown:            {},
}

// ParseEntityType returns the matching EntityType or EntityTypeUnknown.
func ParseEntityType(s string) EntityType {
	t := EntityType(s)
	if _, ok := entityTypes[t]; ok {
		return t
	}
	return EntityTypeUnknown
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	_, ok := entityTypes[t]
	return ok
}

// EntityScope distinguishes file local entities from global placeholders.
type EntityScope string

const (
	// EntityScopeLocal entities are defined in and owned by one file.
	EntityScopeLocal EntityScope = "local"
	// EntityScopeGlobal entities are placeholders keyed by type and name only,
	// shared by every file referencing the same name.
	EntityScopeGlobal EntityScope = "global"
)

// globalNamespace is the UUIDv5 namespace of global placeholder ids.
var globalNamespace = uuid.MustParse("6f0c2a4e-3b7d-4e7a-9a51-0c3f5d8e2b19")

// GlobalEntityID returns the id shared by all placeholders of the given type and name.
func GlobalEntityID(entityType EntityType, name string) uuid.UUID {
	return uuid.NewSHA1(globalNamespace, []byte(string(entityType)+":"+name))
}

// Entity is a node of the code graph.
// StartLine and EndLine are zero based rows.
type Entity struct {
	ID        uuid.UUID   `json:"id"`
	Type      EntityType  `json:"type"`
	Name      string      `json:"name"`
	FilePath  *string     `json:"file_path,omitempty"`
	StartLine *int        `json:"start_line,omitempty"`
	EndLine   *int        `json:"end_line,omitempty"`
	RawText   *string     `json:"raw_text,omitempty"`
	Scope     EntityScope `json:"scope"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
}

// NewGlobalEntity creates a placeholder entity without location.
func NewGlobalEntity(entityType EntityType, name string) *Entity {
	return &Entity{
		ID:    GlobalEntityID(entityType, name),
		Type:  entityType,
		Name:  name,
		Scope: EntityScopeGlobal,
	}
}

// HasLocation reports whether the entity points at a line range in a file.
func (e *Entity) HasLocation() bool {
	return e.FilePath != nil && *e.FilePath != "" && e.StartLine != nil && e.EndLine != nil
}

// Text returns the raw source text of the entity, falling back to its name.
func (e *Entity) Text() string {
	if e.RawText != nil && *e.RawText != "" {
		return *e.RawText
	}
	return e.Name
}
