package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	loadSql "github.com/siherrmann/codegraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for code entity database operations.
type EntitiesDBHandlerFunctions interface {
	MergeEntity(ctx context.Context, entity *model.Entity) error
	SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	SelectEntitiesByFile(ctx context.Context, filePath string) ([]*model.Entity, error)
	SelectEntityNeighbors(ctx context.Context, ids []uuid.UUID) ([]*model.EntityNeighborhood, error)
	SelectAllEntityNeighborhoods(ctx context.Context) ([]*model.EntityNeighborhood, error)
	SelectEntityCounts(ctx context.Context) (map[model.EntityType]int, error)
	DeleteEntity(ctx context.Context, id uuid.UUID) error
	DeleteEntitiesByFile(ctx context.Context, filePath string) (int64, error)
}

// EntitiesDBHandler handles code entity database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new code entities database handler.
// It loads the entity SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'code_entities' table and its indexes if they do not exist.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_code_entities();`)
	if err != nil {
		return helper.NewError("init code_entities", err)
	}

	h.db.Logger.Info("Checked/created table code_entities")

	return nil
}

// MergeEntity inserts the entity or overwrites the stored fields of the entity with the same id.
func (h *EntitiesDBHandler) MergeEntity(ctx context.Context, entity *model.Entity) error {
	scope := entity.Scope
	if scope == "" {
		scope = model.EntityScopeLocal
	}

	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT merge_code_entity($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.ID,
		string(entity.Type),
		entity.Name,
		entity.FilePath,
		entity.StartLine,
		entity.EndLine,
		entity.RawText,
		string(scope),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectEntity retrieves an entity by id
func (h *EntitiesDBHandler) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_code_entity($1)`,
		id,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByFile retrieves all entities located in a file
func (h *EntitiesDBHandler) SelectEntitiesByFile(ctx context.Context, filePath string) ([]*model.Entity, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_code_entities_by_file($1)`,
		filePath,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entities = append(entities, entity)
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntityNeighbors retrieves the given entities together with their direct neighbors
// in both directions. Entities without any relationship are not part of the result.
func (h *EntitiesDBHandler) SelectEntityNeighbors(ctx context.Context, ids []uuid.UUID) ([]*model.EntityNeighborhood, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_code_entity_neighborhoods($1::uuid[])`,
		pq.Array(idStrings),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNeighborhoods(rows)
}

// SelectAllEntityNeighborhoods retrieves every entity with its direct neighbors,
// including entities without relationships.
func (h *EntitiesDBHandler) SelectAllEntityNeighborhoods(ctx context.Context) ([]*model.EntityNeighborhood, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_code_entity_neighborhoods()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanNeighborhoods(rows)
}

// SelectEntityCounts counts entities per entity type
func (h *EntitiesDBHandler) SelectEntityCounts(ctx context.Context) (map[model.EntityType]int, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_code_entity_counts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.EntityType]int{}
	for rows.Next() {
		var entityType string
		var count int
		if err := rows.Scan(&entityType, &count); err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[model.ParseEntityType(entityType)] += count
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// DeleteEntity deletes an entity and all of its relationships
func (h *EntitiesDBHandler) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_code_entity($1)`, id)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteEntitiesByFile deletes all entities located in a file and returns how many were deleted.
// Global placeholders have no file and are kept.
func (h *EntitiesDBHandler) DeleteEntitiesByFile(ctx context.Context, filePath string) (int64, error) {
	var deleted int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_code_entities_by_file($1)`, filePath).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*model.Entity, error) {
	entity := &model.Entity{}
	var entityType, scope string

	err := row.Scan(
		&entity.ID,
		&entityType,
		&entity.Name,
		&entity.FilePath,
		&entity.StartLine,
		&entity.EndLine,
		&entity.RawText,
		&scope,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entity.Type = model.ParseEntityType(entityType)
	entity.Scope = model.EntityScope(scope)

	return entity, nil
}

// scanNeighborhoods groups neighborhood rows by their originating entity, keeping first seen order.
func scanNeighborhoods(rows *sql.Rows) ([]*model.EntityNeighborhood, error) {
	var neighborhoods []*model.EntityNeighborhood
	index := map[uuid.UUID]*model.EntityNeighborhood{}

	for rows.Next() {
		entity := &model.Entity{}
		var entityType, scope string
		var relType, neighborName, neighborType sql.NullString
		var neighborID uuid.NullUUID
		var neighborFilePath *string
		var isOutgoing sql.NullBool

		err := rows.Scan(
			&entity.ID,
			&entityType,
			&entity.Name,
			&entity.FilePath,
			&entity.StartLine,
			&entity.EndLine,
			&entity.RawText,
			&scope,
			&entity.CreatedAt,
			&entity.UpdatedAt,
			&relType,
			&neighborID,
			&neighborName,
			&neighborType,
			&neighborFilePath,
			&isOutgoing,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entity.Type = model.ParseEntityType(entityType)
		entity.Scope = model.EntityScope(scope)

		neighborhood, ok := index[entity.ID]
		if !ok {
			neighborhood = &model.EntityNeighborhood{Entity: entity, Neighbors: []model.Neighbor{}}
			index[entity.ID] = neighborhood
			neighborhoods = append(neighborhoods, neighborhood)
		}

		if !relType.Valid || !neighborID.Valid {
			continue
		}

		neighborhood.Neighbors = append(neighborhood.Neighbors, model.Neighbor{
			RelType:        model.ParseRelationType(relType.String),
			TargetNodeID:   neighborID.UUID,
			TargetNodeName: neighborName.String,
			TargetNodeType: model.ParseEntityType(neighborType.String),
			TargetFilePath: neighborFilePath,
			Outgoing:       isOutgoing.Bool,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return neighborhoods, nil
}
