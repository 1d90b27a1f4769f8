package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/model"
)

// ContextReader reads entities and their direct neighbors.
type ContextReader interface {
	// SelectEntityNeighbors returns the neighborhoods of the ids that have at least one relationship.
	SelectEntityNeighbors(ctx context.Context, ids []uuid.UUID) ([]*model.EntityNeighborhood, error)
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
}

// Expander turns entity ids into context bundles with source snippets and relations.
type Expander struct {
	reader ContextReader
	log    *slog.Logger
}

// NewExpander creates an Expander. A nil logger uses slog.Default.
func NewExpander(reader ContextReader, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{reader: reader, log: logger}
}

// Expand returns one bundle per known id in input order. Unknown ids are skipped.
// Snippet failures are embedded in the bundle, one bad node never stops the others.
func (x *Expander) Expand(ctx context.Context, ids []uuid.UUID) ([]*model.ContextBundle, error) {
	if len(ids) == 0 {
		return []*model.ContextBundle{}, nil
	}

	neighborhoods, err := x.reader.SelectEntityNeighbors(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*model.EntityNeighborhood, len(neighborhoods))
	for _, n := range neighborhoods {
		if existing, ok := byID[n.Entity.ID]; ok {
			existing.Neighbors = append(existing.Neighbors, n.Neighbors...)
			continue
		}
		byID[n.Entity.ID] = n
	}

	bundles := make([]*model.ContextBundle, 0, len(ids))
	done := map[uuid.UUID]bool{}
	for _, id := range ids {
		if done[id] {
			continue
		}
		done[id] = true

		n, ok := byID[id]
		if !ok {
			entity, err := x.reader.SelectEntity(ctx, id)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && entity == nil) {
				x.log.Warn("Skipping unknown entity", slog.String("id", id.String()))
				continue
			}
			if err != nil {
				return nil, err
			}
			n = &model.EntityNeighborhood{Entity: entity}
		}

		bundles = append(bundles, x.bundle(n))
	}

	return bundles, nil
}

func (x *Expander) bundle(n *model.EntityNeighborhood) *model.ContextBundle {
	entity := n.Entity
	bundle := &model.ContextBundle{
		NodeID:    entity.ID,
		FilePath:  entity.FilePath,
		Type:      entity.Type,
		Name:      entity.Name,
		Relations: n.Neighbors,
	}
	if bundle.Relations == nil {
		bundle.Relations = []model.Neighbor{}
	}

	if entity.HasLocation() {
		bundle.CodeSnippet = ReadSnippet(*entity.FilePath, *entity.StartLine+1, *entity.EndLine+1)
		if model.IsSnippetError(bundle.CodeSnippet) {
			x.log.Warn("Failed to read snippet", slog.String("id", entity.ID.String()), slog.String("error", bundle.CodeSnippet))
		}
	} else {
		bundle.CodeSnippet = model.NoSourceSnippet
	}

	return bundle
}
