package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGraphDB is a mock implementation of GraphDB for testing
type MockGraphDB struct {
	entities      map[uuid.UUID]*model.Entity
	relationships []*model.Relationship
}

func NewMockGraphDB() *MockGraphDB {
	return &MockGraphDB{
		entities: make(map[uuid.UUID]*model.Entity),
	}
}

func (m *MockGraphDB) add(entityType model.EntityType, name string) *model.Entity {
	entity := &model.Entity{ID: uuid.New(), Type: entityType, Name: name}
	m.entities[entity.ID] = entity
	return entity
}

func (m *MockGraphDB) relate(source, target *model.Entity, relType model.RelationType) {
	m.relationships = append(m.relationships, &model.Relationship{SourceID: source.ID, TargetID: target.ID, Type: relType})
}

func (m *MockGraphDB) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	entity, ok := m.entities[id]
	if !ok {
		return nil, assert.AnError
	}
	return entity, nil
}

func (m *MockGraphDB) SelectRelationshipsConnectedToEntity(ctx context.Context, id uuid.UUID) ([]*model.RelationshipConnection, error) {
	var connections []*model.RelationshipConnection
	for _, r := range m.relationships {
		if r.SourceID == id {
			connections = append(connections, &model.RelationshipConnection{Relationship: r, IsOutgoing: true})
		} else if r.TargetID == id {
			connections = append(connections, &model.RelationshipConnection{Relationship: r, IsOutgoing: false})
		}
	}
	return connections, nil
}

// testGraph builds file -CONTAINS-> foo -CALLS-> bar and file -IMPORTS_MODULE-> os.
func testGraph() (*MockGraphDB, *model.Entity, *model.Entity, *model.Entity, *model.Entity) {
	db := NewMockGraphDB()
	file := db.add(model.EntityTypeFile, "/src/a.py")
	foo := db.add(model.EntityTypeFunction, "foo")
	bar := db.add(model.EntityTypeFunction, "bar")
	os := db.add(model.EntityTypeModule, "os")
	db.relate(file, foo, model.RelationContains)
	db.relate(foo, bar, model.RelationCalls)
	db.relate(file, os, model.RelationImportsModule)
	return db, file, foo, bar, os
}

func TestBFS(t *testing.T) {
	ctx := context.Background()
	db, file, foo, bar, os := testGraph()

	t.Run("BFS from source with max hops 1", func(t *testing.T) {
		results, err := BFS(ctx, db, file.ID, Options{MaxHops: 1})

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 3, "Expected file, foo and os")
		assert.Equal(t, file.ID, results[0].Entity.ID, "Expected first result to be source")
		assert.Equal(t, 0, results[0].Distance, "Expected source distance to be 0")
		assert.Equal(t, foo.ID, results[1].Entity.ID)
		assert.Equal(t, model.RelationContains, results[1].Via)
		assert.Equal(t, os.ID, results[2].Entity.ID)
	})

	t.Run("BFS from source with max hops 2", func(t *testing.T) {
		results, err := BFS(ctx, db, file.ID, Options{MaxHops: 2})

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 4)
		last := results[3]
		assert.Equal(t, bar.ID, last.Entity.ID)
		assert.Equal(t, 2, last.Distance)
		assert.Equal(t, []uuid.UUID{file.ID, foo.ID, bar.ID}, last.Path, "Expected path from source")
	})

	t.Run("BFS with relationship type filter", func(t *testing.T) {
		results, err := BFS(ctx, db, file.ID, Options{MaxHops: 2, RelTypes: []model.RelationType{model.RelationImportsModule}})

		assert.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, os.ID, results[1].Entity.ID)
	})

	t.Run("BFS follows incoming relationships", func(t *testing.T) {
		outgoing, err := BFS(ctx, db, bar.ID, Options{MaxHops: 2})
		require.NoError(t, err)
		assert.Len(t, outgoing, 1, "Expected bar to have no outgoing relationships")

		incoming, err := BFS(ctx, db, bar.ID, Options{MaxHops: 2, Direction: Incoming})
		require.NoError(t, err)
		require.Len(t, incoming, 3, "Expected bar, foo and file")
		assert.Equal(t, file.ID, incoming[2].Entity.ID)

		both, err := BFS(ctx, db, bar.ID, Options{MaxHops: 3, Direction: Both})
		require.NoError(t, err)
		assert.Len(t, both, 4, "Expected the whole graph")
	})

	t.Run("BFS with max hops 0", func(t *testing.T) {
		results, err := BFS(ctx, db, file.ID, Options{})

		assert.NoError(t, err)
		require.Len(t, results, 1, "Expected only source node for max hops 0")
	})

	t.Run("BFS from unknown source", func(t *testing.T) {
		_, err := BFS(ctx, db, uuid.New(), Options{MaxHops: 1})
		assert.Error(t, err, "Expected BFS to return an error")
	})

	t.Run("BFS skips dangling relationships", func(t *testing.T) {
		dangling := &model.Entity{ID: uuid.New(), Name: "deleted"}
		db.relate(bar, dangling, model.RelationCalls)
		defer func() { db.relationships = db.relationships[:len(db.relationships)-1] }()

		results, err := BFS(ctx, db, bar.ID, Options{MaxHops: 1})
		assert.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestDFS(t *testing.T) {
	ctx := context.Background()
	db, file, foo, bar, os := testGraph()

	t.Run("DFS visits depth first", func(t *testing.T) {
		results, err := DFS(ctx, db, file.ID, Options{MaxHops: 2})

		assert.NoError(t, err, "Expected DFS to not return an error")
		require.Len(t, results, 4)
		ids := []uuid.UUID{results[0].Entity.ID, results[1].Entity.ID, results[2].Entity.ID, results[3].Entity.ID}
		assert.Equal(t, []uuid.UUID{file.ID, foo.ID, bar.ID, os.ID}, ids)
		assert.Equal(t, 2, results[2].Distance)
	})

	t.Run("DFS respects max hops", func(t *testing.T) {
		results, err := DFS(ctx, db, file.ID, Options{MaxHops: 1})

		assert.NoError(t, err)
		assert.Len(t, results, 3)
	})
}

func TestGetNeighbors(t *testing.T) {
	db, file, foo, _, os := testGraph()

	t.Run("Neighbors exclude the source", func(t *testing.T) {
		neighbors, err := GetNeighbors(context.Background(), db, file.ID, Options{MaxHops: 5})

		require.NoError(t, err)
		assert.Equal(t, []*model.Entity{foo, os}, neighbors)
	})
}

func TestStore(t *testing.T) {
	t.Run("Store combines readers", func(t *testing.T) {
		db, file, _, _, _ := testGraph()
		store := Store{EntityReader: db, RelationshipReader: db}

		results, err := BFS(context.Background(), store, file.ID, Options{MaxHops: 1})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})
}
