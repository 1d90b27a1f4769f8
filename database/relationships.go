package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	loadSql "github.com/siherrmann/codegraph/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for code relationship database operations.
type RelationshipsDBHandlerFunctions interface {
	MergeRelationship(ctx context.Context, relationship *model.Relationship) (bool, error)
	SelectRelationshipsConnectedToEntity(ctx context.Context, entityID uuid.UUID) ([]*model.RelationshipConnection, error)
	SelectRelationshipCounts(ctx context.Context) (map[model.RelationType]int, error)
	DeleteRelationship(ctx context.Context, sourceID uuid.UUID, targetID uuid.UUID, relType model.RelationType) error
}

// RelationshipsDBHandler handles code relationship database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new code relationships database handler.
// The entities table has to exist before, relationships reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'code_relationships' table and its indexes if they do not exist.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_code_relationships();`)
	if err != nil {
		return helper.NewError("init code_relationships", err)
	}

	h.db.Logger.Info("Checked/created table code_relationships")

	return nil
}

// MergeRelationship creates the typed edge between two existing entities or merges the
// properties into the existing edge. It returns false if an endpoint does not exist.
func (h *RelationshipsDBHandler) MergeRelationship(ctx context.Context, relationship *model.Relationship) (bool, error) {
	properties := relationship.Properties
	if properties == nil {
		properties = model.Metadata{}
	}

	var written bool
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT merge_code_relationship($1, $2, $3, $4)`,
		relationship.SourceID,
		relationship.TargetID,
		string(relationship.Type),
		properties,
	).Scan(&written)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return written, nil
}

// SelectRelationshipsConnectedToEntity retrieves all relationships starting or ending at an entity
func (h *RelationshipsDBHandler) SelectRelationshipsConnectedToEntity(ctx context.Context, entityID uuid.UUID) ([]*model.RelationshipConnection, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_code_relationships_connected_to_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var connections []*model.RelationshipConnection
	for rows.Next() {
		relationship := &model.Relationship{}
		var relType string
		var isOutgoing bool

		err := rows.Scan(
			&relationship.SourceID,
			&relationship.TargetID,
			&relType,
			&relationship.Properties,
			&relationship.CreatedAt,
			&isOutgoing,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		relationship.Type = model.ParseRelationType(relType)

		connections = append(connections, &model.RelationshipConnection{
			Relationship: relationship,
			IsOutgoing:   isOutgoing,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return connections, nil
}

// SelectRelationshipCounts counts relationships per relationship type
func (h *RelationshipsDBHandler) SelectRelationshipCounts(ctx context.Context) (map[model.RelationType]int, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_code_relationship_counts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.RelationType]int{}
	for rows.Next() {
		var relType string
		var count int
		if err := rows.Scan(&relType, &count); err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[model.ParseRelationType(relType)] += count
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// DeleteRelationship deletes a single typed edge
func (h *RelationshipsDBHandler) DeleteRelationship(ctx context.Context, sourceID uuid.UUID, targetID uuid.UUID, relType model.RelationType) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_code_relationship($1, $2, $3)`,
		sourceID,
		targetID,
		string(relType),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
