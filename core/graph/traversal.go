package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/model"
)

// EntityReader reads single entities.
type EntityReader interface {
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
}

// RelationshipReader reads the relationships touching an entity.
type RelationshipReader interface {
	SelectRelationshipsConnectedToEntity(ctx context.Context, entityID uuid.UUID) ([]*model.RelationshipConnection, error)
}

// GraphDB defines the interface for graph operations
type GraphDB interface {
	EntityReader
	RelationshipReader
}

// Store combines separate entity and relationship readers into a GraphDB.
type Store struct {
	EntityReader
	RelationshipReader
}

// Direction selects which relationships a traversal follows.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// TraversalResult contains an entity and its distance from the source
type TraversalResult struct {
	Entity   *model.Entity      `json:"entity"`
	Distance int                `json:"distance"`
	Path     []uuid.UUID        `json:"path"`
	Via      model.RelationType `json:"via,omitempty"` // relationship leading to this entity
}

// Options configure a traversal.
type Options struct {
	MaxHops   int
	RelTypes  []model.RelationType // empty follows all types
	Direction Direction
}

// step is a neighbor reached over one relationship.
type step struct {
	id  uuid.UUID
	via model.RelationType
}

func neighbors(ctx context.Context, db GraphDB, id uuid.UUID, opts Options) ([]step, error) {
	connections, err := db.SelectRelationshipsConnectedToEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	var steps []step
	for _, c := range connections {
		r := c.Relationship
		if !followType(r.Type, opts.RelTypes) {
			continue
		}
		switch {
		case c.IsOutgoing && opts.Direction != Incoming:
			steps = append(steps, step{id: r.TargetID, via: r.Type})
		case !c.IsOutgoing && opts.Direction != Outgoing:
			steps = append(steps, step{id: r.SourceID, via: r.Type})
		}
	}
	return steps, nil
}

func followType(relType model.RelationType, relTypes []model.RelationType) bool {
	if len(relTypes) == 0 {
		return true
	}
	for _, t := range relTypes {
		if t == relType {
			return true
		}
	}
	return false
}

// BFS performs breadth-first search from a source entity
func BFS(ctx context.Context, db GraphDB, sourceID uuid.UUID, opts Options) ([]*TraversalResult, error) {
	source, err := db.SelectEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{sourceID: true}
	queue := []*TraversalResult{{Entity: source, Path: []uuid.UUID{sourceID}}}
	var results []*TraversalResult

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		results = append(results, current)

		if current.Distance >= opts.MaxHops {
			continue
		}

		steps, err := neighbors(ctx, db, current.Entity.ID, opts)
		if err != nil {
			return nil, err
		}

		for _, s := range steps {
			if visited[s.id] {
				continue
			}

			target, err := db.SelectEntity(ctx, s.id)
			if err != nil {
				continue // Skip if entity not found
			}
			visited[s.id] = true

			path := make([]uuid.UUID, len(current.Path), len(current.Path)+1)
			copy(path, current.Path)

			queue = append(queue, &TraversalResult{
				Entity:   target,
				Distance: current.Distance + 1,
				Path:     append(path, s.id),
				Via:      s.via,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source entity
func DFS(ctx context.Context, db GraphDB, sourceID uuid.UUID, opts Options) ([]*TraversalResult, error) {
	source, err := db.SelectEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	var results []*TraversalResult
	visited := map[uuid.UUID]bool{}
	dfsRecursive(ctx, db, &TraversalResult{Entity: source, Path: []uuid.UUID{sourceID}}, opts, visited, &results)

	return results, ctx.Err()
}

func dfsRecursive(ctx context.Context, db GraphDB, current *TraversalResult, opts Options, visited map[uuid.UUID]bool, results *[]*TraversalResult) {
	visited[current.Entity.ID] = true
	*results = append(*results, current)

	if current.Distance >= opts.MaxHops || ctx.Err() != nil {
		return
	}

	steps, err := neighbors(ctx, db, current.Entity.ID, opts)
	if err != nil {
		return
	}

	for _, s := range steps {
		if visited[s.id] {
			continue
		}

		target, err := db.SelectEntity(ctx, s.id)
		if err != nil {
			continue
		}

		path := make([]uuid.UUID, len(current.Path), len(current.Path)+1)
		copy(path, current.Path)

		dfsRecursive(ctx, db, &TraversalResult{
			Entity:   target,
			Distance: current.Distance + 1,
			Path:     append(path, s.id),
			Via:      s.via,
		}, opts, visited, results)
	}
}

// GetNeighbors retrieves the entities one relationship away from id.
func GetNeighbors(ctx context.Context, db GraphDB, id uuid.UUID, opts Options) ([]*model.Entity, error) {
	opts.MaxHops = 1
	results, err := BFS(ctx, db, id, opts)
	if err != nil {
		return nil, err
	}

	entities := make([]*model.Entity, 0, len(results)-1)
	for _, r := range results[1:] {
		entities = append(entities, r.Entity)
	}

	return entities, nil
}
