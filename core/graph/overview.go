package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/model"
)

// Counter counts entities and relationships per type.
type Counter interface {
	SelectEntityCounts(ctx context.Context) (map[model.EntityType]int, error)
	SelectRelationshipCounts(ctx context.Context) (map[model.RelationType]int, error)
}

// Counts combines separate entity and relationship counters into a Counter.
type Counts struct {
	Entities interface {
		SelectEntityCounts(ctx context.Context) (map[model.EntityType]int, error)
	}
	Relationships interface {
		SelectRelationshipCounts(ctx context.Context) (map[model.RelationType]int, error)
	}
}

func (c Counts) SelectEntityCounts(ctx context.Context) (map[model.EntityType]int, error) {
	return c.Entities.SelectEntityCounts(ctx)
}

func (c Counts) SelectRelationshipCounts(ctx context.Context) (map[model.RelationType]int, error) {
	return c.Relationships.SelectRelationshipCounts(ctx)
}

// Summary returns the node and relationship counts of the whole graph.
func Summary(ctx context.Context, counter Counter) (*model.GraphSummary, error) {
	nodes, err := counter.SelectEntityCounts(ctx)
	if err != nil {
		return nil, err
	}
	relationships, err := counter.SelectRelationshipCounts(ctx)
	if err != nil {
		return nil, err
	}

	summary := &model.GraphSummary{
		NodesByType:         nodes,
		RelationshipsByType: relationships,
	}
	for _, n := range nodes {
		summary.TotalNodes += n
	}
	for _, n := range relationships {
		summary.TotalRelationships += n
	}

	return summary, nil
}

// Connection is a relationship together with the entity on its other end.
type Connection struct {
	Relationship *model.Relationship `json:"relationship"`
	Entity       *model.Entity       `json:"entity"`
}

// EntityDetails is an entity with all of its relationships split by direction.
type EntityDetails struct {
	Entity   *model.Entity `json:"entity"`
	Incoming []*Connection `json:"incoming"`
	Outgoing []*Connection `json:"outgoing"`
}

// Details returns the entity id with its incoming and outgoing connections.
// Connections to entities that no longer exist are left out.
func Details(ctx context.Context, db GraphDB, id uuid.UUID) (*EntityDetails, error) {
	entity, err := db.SelectEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	connections, err := db.SelectRelationshipsConnectedToEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &EntityDetails{
		Entity:   entity,
		Incoming: []*Connection{},
		Outgoing: []*Connection{},
	}
	for _, c := range connections {
		otherID := c.Relationship.SourceID
		if c.IsOutgoing {
			otherID = c.Relationship.TargetID
		}
		other, err := db.SelectEntity(ctx, otherID)
		if err != nil {
			continue
		}

		connection := &Connection{Relationship: c.Relationship, Entity: other}
		if c.IsOutgoing {
			details.Outgoing = append(details.Outgoing, connection)
		} else {
			details.Incoming = append(details.Incoming, connection)
		}
	}

	return details, nil
}
