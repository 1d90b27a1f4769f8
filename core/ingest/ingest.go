package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
)

// GraphWriter merges entities and relationships into the graph store.
type GraphWriter interface {
	MergeEntity(ctx context.Context, entity *model.Entity) error
	// MergeRelationship reports false if one of the endpoints does not exist.
	MergeRelationship(ctx context.Context, relationship *model.Relationship) (bool, error)
}

// Stats counts what an Ingest call wrote.
type Stats struct {
	Entities      int `json:"entities"`
	Relationships int `json:"relationships"`
	// Skipped counts relationships with a missing endpoint.
	Skipped int `json:"skipped"`
}

// Ingestor writes extraction results into a GraphWriter.
type Ingestor struct {
	writer GraphWriter
	log    *slog.Logger
}

// NewIngestor creates an Ingestor. A nil logger uses slog.Default.
func NewIngestor(writer GraphWriter, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{writer: writer, log: logger}
}

// Ingest merges all entities, then all relationships.
// The first failing write aborts the batch. Writes before it stay committed.
func (i *Ingestor) Ingest(ctx context.Context, entities []*model.Entity, relationships []*model.Relationship) (*Stats, error) {
	stats := &Stats{}

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return stats, helper.NewError("ingest", err)
		}
		if !entity.Type.Valid() {
			i.log.Warn("Unknown entity type", slog.String("id", entity.ID.String()), slog.String("type", string(entity.Type)))
			entity.Type = model.EntityTypeUnknown
		}
		if entity.Scope == "" {
			entity.Scope = model.EntityScopeLocal
		}

		if err := i.writer.MergeEntity(ctx, entity); err != nil {
			return stats, helper.NewError(fmt.Sprintf("merge entity %s", entity.ID), err)
		}
		stats.Entities++
	}

	for _, relationship := range relationships {
		if err := ctx.Err(); err != nil {
			return stats, helper.NewError("ingest", err)
		}
		if !relationship.Type.Valid() {
			i.log.Warn("Unknown relationship type", slog.String("source_id", relationship.SourceID.String()), slog.String("type", string(relationship.Type)))
			relationship.Type = model.RelationRelatedTo
		}

		merged, err := i.writer.MergeRelationship(ctx, relationship)
		if err != nil {
			return stats, helper.NewError(fmt.Sprintf("merge relationship %s-%s->%s", relationship.SourceID, relationship.Type, relationship.TargetID), err)
		}
		if !merged {
			i.log.Warn("Relationship endpoint missing", slog.String("source_id", relationship.SourceID.String()), slog.String("target_id", relationship.TargetID.String()), slog.String("type", string(relationship.Type)))
			stats.Skipped++
			continue
		}
		stats.Relationships++
	}

	i.log.Debug("Ingested batch", slog.Int("entities", stats.Entities), slog.Int("relationships", stats.Relationships), slog.Int("skipped", stats.Skipped))

	return stats, nil
}
