package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/core/extractor"
	"github.com/siherrmann/codegraph/core/parser"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContextReader struct {
	neighborhoods []*model.EntityNeighborhood
	entities      map[uuid.UUID]*model.Entity
	err           error
}

func (r *fakeContextReader) SelectEntityNeighbors(ctx context.Context, ids []uuid.UUID) ([]*model.EntityNeighborhood, error) {
	if r.err != nil {
		return nil, r.err
	}
	wanted := map[uuid.UUID]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var found []*model.EntityNeighborhood
	for _, n := range r.neighborhoods {
		if wanted[n.Entity.ID] {
			found = append(found, n)
		}
	}
	return found, nil
}

func (r *fakeContextReader) SelectEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	if entity, ok := r.entities[id]; ok {
		return entity, nil
	}
	return nil, helper.NewError("scan", sql.ErrNoRows)
}

func TestExpand(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "def foo():\n    return 1\n")

	foo := &model.Entity{ID: uuid.New(), Type: model.EntityTypeFunction, Name: "foo", FilePath: &path, StartLine: ptr(0), EndLine: ptr(1)}
	module := model.NewGlobalEntity(model.EntityTypeModule, "os")
	isolated := &model.Entity{ID: uuid.New(), Type: model.EntityTypeVariable, Name: "x", FilePath: &path, StartLine: ptr(0), EndLine: ptr(0)}
	missing := "/does/not/exist.py"
	gone := &model.Entity{ID: uuid.New(), Type: model.EntityTypeFunction, Name: "gone", FilePath: &missing, StartLine: ptr(0), EndLine: ptr(0)}
	outOfRange := &model.Entity{ID: uuid.New(), Type: model.EntityTypeFunction, Name: "late", FilePath: &path, StartLine: ptr(10), EndLine: ptr(12)}

	reader := &fakeContextReader{
		neighborhoods: []*model.EntityNeighborhood{
			{Entity: foo, Neighbors: []model.Neighbor{
				{RelType: model.RelationContains, TargetNodeName: path, TargetNodeType: model.EntityTypeFile, TargetFilePath: &path},
				{RelType: model.RelationCalls, TargetNodeName: "print", TargetNodeType: model.EntityTypeExternalCallTarget, Outgoing: true},
			}},
			{Entity: module, Neighbors: []model.Neighbor{
				{RelType: model.RelationImportsModule, TargetNodeName: path, TargetNodeType: model.EntityTypeFile},
			}},
			{Entity: gone, Neighbors: []model.Neighbor{{RelType: model.RelationContains, TargetNodeName: missing}}},
		},
		entities: map[uuid.UUID]*model.Entity{isolated.ID: isolated, outOfRange.ID: outOfRange},
	}
	expander := NewExpander(reader, nil)

	t.Run("Bundle with snippet and relations", func(t *testing.T) {
		bundles, err := expander.Expand(ctx, []uuid.UUID{foo.ID})
		require.NoError(t, err, "Expected Expand to not return an error")
		require.Len(t, bundles, 1)

		bundle := bundles[0]
		assert.Equal(t, foo.ID, bundle.NodeID)
		assert.Equal(t, "def foo():\n    return 1", bundle.CodeSnippet, "Expected zero based rows read as lines 1-2")
		assert.Len(t, bundle.Relations, 2)
		assert.True(t, bundle.HasSource())
	})

	t.Run("Placeholder for nodes without location", func(t *testing.T) {
		bundles, err := expander.Expand(ctx, []uuid.UUID{module.ID})
		require.NoError(t, err)
		require.Len(t, bundles, 1)
		assert.Equal(t, model.NoSourceSnippet, bundles[0].CodeSnippet)
		assert.False(t, bundles[0].HasSource())
	})

	t.Run("Isolated nodes are looked up individually", func(t *testing.T) {
		bundles, err := expander.Expand(ctx, []uuid.UUID{isolated.ID})
		require.NoError(t, err)
		require.Len(t, bundles, 1)
		assert.Equal(t, "def foo():", bundles[0].CodeSnippet)
		assert.NotNil(t, bundles[0].Relations)
		assert.Empty(t, bundles[0].Relations)
	})

	t.Run("One bad node never blocks the others", func(t *testing.T) {
		bundles, err := expander.Expand(ctx, []uuid.UUID{gone.ID, foo.ID, outOfRange.ID, uuid.New(), module.ID})
		require.NoError(t, err)
		require.Len(t, bundles, 4, "Expected the unknown id to be skipped")

		assert.Equal(t, "ERROR: file not found: "+missing, bundles[0].CodeSnippet)
		assert.Equal(t, foo.ID, bundles[1].NodeID, "Expected input order")
		assert.Equal(t, "ERROR: line range 11-13 out of bounds for "+path+" (2 lines)", bundles[2].CodeSnippet)
		assert.Equal(t, module.ID, bundles[3].NodeID)
	})

	t.Run("Duplicate ids give one bundle", func(t *testing.T) {
		bundles, err := expander.Expand(ctx, []uuid.UUID{foo.ID, foo.ID})
		require.NoError(t, err)
		assert.Len(t, bundles, 1)
	})

	t.Run("Empty input", func(t *testing.T) {
		bundles, err := expander.Expand(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, bundles)
	})

	t.Run("Reader failure is returned", func(t *testing.T) {
		_, err := NewExpander(&fakeContextReader{err: errors.New("connection refused")}, nil).Expand(ctx, []uuid.UUID{foo.ID})
		assert.Error(t, err)
	})
}

func TestExpandExtractedFile(t *testing.T) {
	ctx := context.Background()
	x := extractor.NewExtractor(extractor.Config{}, nil)

	extractFile := func(t *testing.T, source string) *model.Entity {
		t.Helper()
		path := writeFile(t, source)
		tree, err := parser.Parse(ctx, []byte(source), model.LanguagePython)
		require.NoError(t, err)
		t.Cleanup(tree.Close)
		return x.Extract(ctx, tree, path).Entities[0]
	}

	t.Run("File ending with a newline expands to its text", func(t *testing.T) {
		file := extractFile(t, "def foo():\n    return 1\n")
		expander := NewExpander(&fakeContextReader{entities: map[uuid.UUID]*model.Entity{file.ID: file}}, nil)

		bundles, err := expander.Expand(ctx, []uuid.UUID{file.ID})
		require.NoError(t, err)
		require.Len(t, bundles, 1)
		assert.Equal(t, "def foo():\n    return 1", bundles[0].CodeSnippet)
		assert.True(t, bundles[0].HasSource())
	})

	t.Run("File without trailing newline", func(t *testing.T) {
		file := extractFile(t, "import os\nx = 1")
		expander := NewExpander(&fakeContextReader{entities: map[uuid.UUID]*model.Entity{file.ID: file}}, nil)

		bundles, err := expander.Expand(ctx, []uuid.UUID{file.ID})
		require.NoError(t, err)
		require.Len(t, bundles, 1)
		assert.Equal(t, "import os\nx = 1", bundles[0].CodeSnippet)
	})

	t.Run("Empty file gives the placeholder", func(t *testing.T) {
		file := extractFile(t, "")
		expander := NewExpander(&fakeContextReader{entities: map[uuid.UUID]*model.Entity{file.ID: file}}, nil)

		bundles, err := expander.Expand(ctx, []uuid.UUID{file.ID})
		require.NoError(t, err)
		require.Len(t, bundles, 1)
		assert.Equal(t, model.NoSourceSnippet, bundles[0].CodeSnippet)
	})
}

func TestExpandWithDatabase(t *testing.T) {
	entities, relationships := initHandlers(t)
	ctx := context.Background()
	path := writeFile(t, "import os\n\ndef foo():\n    return os.getcwd()\n")

	file := &model.Entity{ID: uuid.New(), Type: model.EntityTypeFile, Name: path, FilePath: &path, StartLine: ptr(0), EndLine: ptr(3), Scope: model.EntityScopeLocal}
	foo := &model.Entity{ID: uuid.New(), Type: model.EntityTypeFunction, Name: "foo", FilePath: &path, StartLine: ptr(2), EndLine: ptr(3), Scope: model.EntityScopeLocal}
	osModule := model.NewGlobalEntity(model.EntityTypeModule, "os")
	lonely := &model.Entity{ID: uuid.New(), Type: model.EntityTypeVariable, Name: "lonely", FilePath: &path, StartLine: ptr(0), EndLine: ptr(0), Scope: model.EntityScopeLocal}
	for _, e := range []*model.Entity{file, foo, osModule, lonely} {
		require.NoError(t, entities.MergeEntity(ctx, e))
	}
	for _, r := range []*model.Relationship{
		{SourceID: file.ID, TargetID: foo.ID, Type: model.RelationContains, Properties: model.Metadata{"line": 2}},
		{SourceID: file.ID, TargetID: osModule.ID, Type: model.RelationImportsModule},
	} {
		merged, err := relationships.MergeRelationship(ctx, r)
		require.NoError(t, err)
		require.True(t, merged)
	}

	t.Run("Expand search hits from the graph", func(t *testing.T) {
		bundles, err := NewExpander(entities, nil).Expand(ctx, []uuid.UUID{foo.ID, osModule.ID, lonely.ID, file.ID})
		require.NoError(t, err, "Expected Expand to not return an error")
		require.Len(t, bundles, 4)

		assert.Equal(t, "def foo():\n    return os.getcwd()", bundles[0].CodeSnippet)
		require.Len(t, bundles[0].Relations, 1)
		assert.Equal(t, model.RelationContains, bundles[0].Relations[0].RelType)
		assert.Equal(t, path, bundles[0].Relations[0].TargetNodeName)

		assert.Equal(t, model.NoSourceSnippet, bundles[1].CodeSnippet)
		assert.Equal(t, "import os", bundles[2].CodeSnippet)
		assert.Empty(t, bundles[2].Relations)
		assert.Len(t, bundles[3].Relations, 2, "Expected both outgoing relationships of the file")
	})
}

func ptr[T any](v T) *T {
	return &v
}
