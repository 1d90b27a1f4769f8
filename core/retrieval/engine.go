package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/siherrmann/codegraph/core/pipeline"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	"github.com/viterin/vek/vek32"
)

var (
	// ErrEmptyQuery is returned for an empty or blank query.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrInvalidTopK is returned for a top k below 1.
	ErrInvalidTopK = errors.New("top_k must be at least 1")
)

// Engine ranks the persisted embeddings against a query by cosine similarity.
type Engine struct {
	store  pipeline.VectorStore
	encode pipeline.EncodeFunc
	log    *slog.Logger
}

// NewEngine creates a search engine. encode must be the encoder the vectors were built with.
func NewEngine(store pipeline.VectorStore, encode pipeline.EncodeFunc, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, encode: encode, log: logger}
}

// Search returns the top k entities most similar to query, best first.
// The vectors are loaded on every call so the latest pipeline run is visible.
// Entities with the same score keep their insertion order.
func (e *Engine) Search(ctx context.Context, query string, config *model.SearchConfig) ([]*model.SearchResult, error) {
	if config == nil {
		defaults := model.DefaultSearchConfig()
		config = &defaults
	}
	if config.TopK < 1 {
		return nil, helper.NewError("search", ErrInvalidTopK)
	}
	if strings.TrimSpace(query) == "" {
		return nil, helper.NewError("search", ErrEmptyQuery)
	}
	if e.encode == nil {
		return nil, helper.NewError("search", errors.New("encoder not set"))
	}

	records, err := e.store.Load(ctx)
	if err != nil {
		return nil, helper.NewError("load embeddings", err)
	}
	if len(records) == 0 {
		return []*model.SearchResult{}, nil
	}

	queryVector, err := e.encode(query)
	if err != nil {
		return nil, helper.NewError("encode query", err)
	}
	queryNorm := norm(queryVector)

	results := make([]*model.SearchResult, 0, len(records))
	for _, record := range records {
		if len(record.Vector) != len(queryVector) {
			e.log.Warn("Skipping embedding with wrong dimension", slog.String("entity_id", record.EntityID.String()), slog.Int("dimension", len(record.Vector)), slog.Int("expected", len(queryVector)))
			continue
		}
		results = append(results, &model.SearchResult{
			NodeID: record.EntityID,
			Score:  cosine(queryVector, queryNorm, record.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results[:min(config.TopK, len(results))], nil
}

func norm(v []float32) float64 {
	return math.Sqrt(float64(vek32.Dot(v, v)))
}

// cosine returns 0 if one of the vectors has no length.
func cosine(a []float32, aNorm float64, b []float32) float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (aNorm * bNorm)
}
