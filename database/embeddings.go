package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	loadSql "github.com/siherrmann/codegraph/sql"
)

// EmbeddingsDBHandler stores the entity embeddings in a pgvector table.
// It is a vector store for the embedding pipeline and the search engine.
type EmbeddingsDBHandler struct {
	db *helper.Database
}

// NewEmbeddingsDBHandler creates a new embeddings database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEmbeddingsDBHandler(db *helper.Database, force bool) (*EmbeddingsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	embeddingsDbHandler := &EmbeddingsDBHandler{
		db: db,
	}

	err := loadSql.LoadEmbeddingsSql(embeddingsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load embeddings sql", err)
	}

	err = embeddingsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EmbeddingsDBHandler")

	return embeddingsDbHandler, nil
}

// CreateTable creates the 'code_embeddings' table if it does not exist.
func (h *EmbeddingsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_code_embeddings();`)
	if err != nil {
		return helper.NewError("init code_embeddings", err)
	}

	h.db.Logger.Info("Checked/created table code_embeddings")

	return nil
}

// Replace swaps all stored embeddings for records in a single transaction.
// Concurrent readers see either the old or the new set.
func (h *EmbeddingsDBHandler) Replace(ctx context.Context, records []model.EmbeddingRecord) error {
	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT delete_all_code_embeddings()`); err != nil {
		return helper.NewError("exec", err)
	}

	for i, record := range records {
		_, err := tx.ExecContext(
			ctx,
			`SELECT insert_code_embedding($1, $2, $3)`,
			int64(i),
			record.EntityID,
			pgvector.NewVector(record.Vector),
		)
		if err != nil {
			return helper.NewError(fmt.Sprintf("insert embedding %s", record.EntityID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helper.NewError("commit", err)
	}

	return nil
}

// Load returns all stored embeddings in insertion order.
func (h *EmbeddingsDBHandler) Load(ctx context.Context) ([]model.EmbeddingRecord, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_code_embeddings()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var records []model.EmbeddingRecord
	for rows.Next() {
		var entityID uuid.UUID
		var vector pgvector.Vector
		if err := rows.Scan(&entityID, &vector); err != nil {
			return nil, helper.NewError("scan", err)
		}
		records = append(records, model.EmbeddingRecord{
			EntityID: entityID,
			Vector:   vector.Slice(),
		})
	}

	if err = rows.Err(); err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return records, nil
}
