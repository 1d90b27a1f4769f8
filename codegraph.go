package codegraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/core/answer"
	"github.com/siherrmann/codegraph/core/extractor"
	"github.com/siherrmann/codegraph/core/graph"
	"github.com/siherrmann/codegraph/core/ingest"
	"github.com/siherrmann/codegraph/core/parser"
	"github.com/siherrmann/codegraph/core/pipeline"
	"github.com/siherrmann/codegraph/core/retrieval"
	"github.com/siherrmann/codegraph/core/scanner"
	"github.com/siherrmann/codegraph/database"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
	loadSql "github.com/siherrmann/codegraph/sql"
)

// CodeGraph provides a unified interface to analysis, embedding, search and answering
type CodeGraph struct {
	DB            *helper.Database
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	Embeddings    *database.EmbeddingsDBHandler // Only set for the postgres vector backend
	Vectors       pipeline.VectorStore
	Extractor     *extractor.Extractor
	Ingestor      *ingest.Ingestor
	Expander      *retrieval.Expander
	Encoder       *pipeline.Encoder // Optional, required for embedding and search
	Answerer      answer.Answerer   // Optional, required for Ask
	config        *helper.Configuration
	// Logging
	log *slog.Logger
}

// NewCodeGraph connects to the database and creates all handlers.
// A nil config uses helper.DefaultConfiguration.
func NewCodeGraph(dbConfig *helper.DatabaseConfiguration, config *helper.Configuration) (*CodeGraph, error) {
	if config == nil {
		config = helper.DefaultConfiguration()
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	db, err := helper.NewDatabase("codegraph", dbConfig, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}

	cg, err := newCodeGraph(db, config, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return cg, nil
}

func newCodeGraph(db *helper.Database, config *helper.Configuration, logger *slog.Logger) (*CodeGraph, error) {
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Entities first, relationships reference them
	// force=false to not reload if functions already exist
	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	cg := &CodeGraph{
		DB:            db,
		Entities:      entities,
		Relationships: relationships,
		Extractor:     extractor.NewExtractor(extractor.Config{DeterministicIDs: config.DeterministicIDs}, logger),
		Ingestor:      ingest.NewIngestor(graphWriter{entities, relationships}, logger),
		Expander:      retrieval.NewExpander(entities, logger),
		config:        config,
		log:           logger,
	}

	switch config.VectorBackend {
	case helper.VectorBackendPostgres:
		embeddings, err := database.NewEmbeddingsDBHandler(db, false)
		if err != nil {
			return nil, helper.NewError("create embeddings handler", err)
		}
		cg.Embeddings = embeddings
		cg.Vectors = embeddings
	default:
		cg.Vectors = pipeline.NewBoltVectorStore(config.EmbeddingsPath)
	}

	if config.AnthropicAPIKey != "" {
		answerer, err := answer.NewAnthropicAnswerer(answer.AnthropicConfig{APIKey: config.AnthropicAPIKey, Model: config.LLMModel}, logger)
		if err != nil {
			return nil, helper.NewError("create answerer", err)
		}
		cg.Answerer = answerer
	}

	return cg, nil
}

// graphWriter joins the entity and relationship handlers into an ingest.GraphWriter.
type graphWriter struct {
	*database.EntitiesDBHandler
	*database.RelationshipsDBHandler
}

// Close closes the encoder and the database connection
func (cg *CodeGraph) Close() error {
	if err := cg.Encoder.Close(); err != nil {
		cg.log.Warn("Failed to close encoder", slog.String("error", err.Error()))
	}
	return cg.DB.Close()
}

// SetEncoder sets the encoder used for embedding and search
func (cg *CodeGraph) SetEncoder(encoder *pipeline.Encoder) {
	cg.Encoder = encoder
}

// UseDefaultEncoder loads the configured sentence transformer model
func (cg *CodeGraph) UseDefaultEncoder() error {
	encoder, err := pipeline.DefaultEncoder(cg.config.ModelName)
	if err != nil {
		return helper.NewError("create default encoder", err)
	}
	cg.Encoder = encoder
	return nil
}

// SetAnswerer sets the answer generator used by Ask
func (cg *CodeGraph) SetAnswerer(answerer answer.Answerer) {
	cg.Answerer = answerer
}

// AnalyzeFile parses content as the language of path, extracts its entities and
// relationships and merges them into the graph. Files that cannot be parsed give
// an empty result. Only write failures are returned.
func (cg *CodeGraph) AnalyzeFile(ctx context.Context, path string, content []byte) (*extractor.Result, error) {
	lang := model.DetectLanguage(path)
	tree, err := parser.Parse(ctx, content, lang)
	if err != nil {
		cg.log.Warn("Skipping file", slog.String("file_path", path), slog.String("error", err.Error()))
		return &extractor.Result{}, nil
	}
	defer tree.Close()

	if tree.HasErrors() {
		cg.log.Debug("Parsed with syntax errors", slog.String("file_path", path))
	}

	result := cg.Extractor.Extract(ctx, tree, path)
	if len(result.Entities) == 0 {
		return result, nil
	}

	if _, err := cg.Ingestor.Ingest(ctx, result.Entities, result.Relationships); err != nil {
		return result, helper.NewError(fmt.Sprintf("ingest %s", path), err)
	}

	cg.log.Info("Analyzed file", slog.String("file_path", path), slog.Int("entities", len(result.Entities)), slog.Int("relationships", len(result.Relationships)))

	return result, nil
}

// FileError is a file that could not be analyzed.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// AnalysisReport summarizes an AnalyzeDirectory call.
type AnalysisReport struct {
	Files         int         `json:"files"`
	Entities      int         `json:"entities"`
	Relationships int         `json:"relationships"`
	Failed        []FileError `json:"failed,omitempty"`
	// Skipped files were collected but produced no File entity.
	Skipped []string `json:"skipped,omitempty"`
}

// AnalyzeDirectory analyzes every source file below root. A file that cannot be
// read is recorded in the report, a graph write failure aborts the run.
// With clean set, entities stored for a file are removed before it is analyzed.
// Without config.Languages only languages the extractor supports are collected.
func (cg *CodeGraph) AnalyzeDirectory(ctx context.Context, root string, config scanner.Config, clean bool) (*AnalysisReport, error) {
	if len(config.Languages) == 0 {
		for _, lang := range model.Languages() {
			if cg.Extractor.Supports(lang) {
				config.Languages = append(config.Languages, lang)
			}
		}
	}

	files, err := scanner.Collect(root, config)
	if err != nil {
		return nil, helper.NewError("collect files", err)
	}

	report := &AnalysisReport{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		content, err := os.ReadFile(f.Path)
		if err != nil {
			cg.log.Warn("Failed to read file", slog.String("file_path", f.Path), slog.String("error", err.Error()))
			report.Failed = append(report.Failed, FileError{Path: f.Path, Error: err.Error()})
			continue
		}

		if clean {
			if _, err := cg.RemoveFile(ctx, f.Path); err != nil {
				return report, err
			}
		}

		result, err := cg.AnalyzeFile(ctx, f.Path, content)
		if err != nil {
			return report, err
		}
		if len(result.Entities) == 0 {
			report.Skipped = append(report.Skipped, f.Path)
			continue
		}
		report.Files++
		report.Entities += len(result.Entities)
		report.Relationships += len(result.Relationships)
	}

	return report, nil
}

// RemoveFile deletes the entities located in path together with their relationships.
// Global placeholders stay.
func (cg *CodeGraph) RemoveFile(ctx context.Context, path string) (int64, error) {
	deleted, err := cg.Entities.DeleteEntitiesByFile(ctx, path)
	if err != nil {
		return 0, helper.NewError("remove file", err)
	}
	return deleted, nil
}

func (cg *CodeGraph) newPipeline(operation string) (*pipeline.Pipeline, error) {
	if cg.Encoder == nil || cg.Encoder.EncodeBatch == nil {
		return nil, helper.NewError(operation, fmt.Errorf("encoder not set, use SetEncoder() or UseDefaultEncoder() first"))
	}
	return pipeline.NewPipeline(cg.Entities, cg.Vectors, cg.Encoder.EncodeBatch, cg.config.BatchSize, cg.log), nil
}

// RunEmbeddingPipeline embeds all graph nodes and replaces the stored vectors.
// Pipeline failures are reported through observer and the summary.
func (cg *CodeGraph) RunEmbeddingPipeline(ctx context.Context, observer pipeline.ProgressObserver) (*pipeline.RunSummary, error) {
	p, err := cg.newPipeline("run embedding pipeline")
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, observer), nil
}

// StartEmbeddingPipeline runs the embedding pipeline in the background.
// The channel is closed after the final event.
func (cg *CodeGraph) StartEmbeddingPipeline(ctx context.Context) (<-chan model.ProgressEvent, error) {
	p, err := cg.newPipeline("start embedding pipeline")
	if err != nil {
		return nil, err
	}
	return p.Start(ctx), nil
}

// Search performs a semantic search over the embedded nodes
func (cg *CodeGraph) Search(ctx context.Context, query string, config *model.SearchConfig) ([]*model.SearchResult, error) {
	if cg.Encoder == nil || cg.Encoder.Encode == nil {
		return nil, helper.NewError("search", fmt.Errorf("encoder not set, use SetEncoder() or UseDefaultEncoder() first"))
	}
	return retrieval.NewEngine(cg.Vectors, cg.Encoder.Encode, cg.log).Search(ctx, query, config)
}

// ExpandContext returns the context bundles of the given entities
func (cg *CodeGraph) ExpandContext(ctx context.Context, ids []uuid.UUID) ([]*model.ContextBundle, error) {
	return cg.Expander.Expand(ctx, ids)
}

// SearchWithContext performs a semantic search and expands the results in score order
func (cg *CodeGraph) SearchWithContext(ctx context.Context, query string, config *model.SearchConfig) ([]*model.ContextBundle, error) {
	results, err := cg.Search(ctx, query, config)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.NodeID
	}

	return cg.ExpandContext(ctx, ids)
}

// Answer is a generated answer with the context it is based on.
type Answer struct {
	Query    string                 `json:"query"`
	Answer   string                 `json:"answer"`
	Contexts []*model.ContextBundle `json:"contexts"`
}

// Ask answers a question about the analyzed code with the context of a semantic search
func (cg *CodeGraph) Ask(ctx context.Context, query string, config *model.SearchConfig) (*Answer, error) {
	if cg.Answerer == nil {
		return nil, helper.NewError("ask", answer.ErrNoAPIKey)
	}

	bundles, err := cg.SearchWithContext(ctx, query, config)
	if err != nil {
		return nil, err
	}

	text, err := cg.Answerer.Answer(ctx, answer.BuildPrompt(query, bundles))
	if err != nil {
		return nil, helper.NewError("generate answer", err)
	}

	return &Answer{Query: query, Answer: text, Contexts: bundles}, nil
}

// Traverse walks the graph from id, breadth first unless depthFirst is set
func (cg *CodeGraph) Traverse(ctx context.Context, id uuid.UUID, opts graph.Options, depthFirst bool) ([]*graph.TraversalResult, error) {
	store := graph.Store{EntityReader: cg.Entities, RelationshipReader: cg.Relationships}
	if depthFirst {
		return graph.DFS(ctx, store, id, opts)
	}
	return graph.BFS(ctx, store, id, opts)
}

// Details returns an entity with its incoming and outgoing connections
func (cg *CodeGraph) Details(ctx context.Context, id uuid.UUID) (*graph.EntityDetails, error) {
	return graph.Details(ctx, graph.Store{EntityReader: cg.Entities, RelationshipReader: cg.Relationships}, id)
}

// Summary counts the nodes and relationships of the graph per type
func (cg *CodeGraph) Summary(ctx context.Context) (*model.GraphSummary, error) {
	return graph.Summary(ctx, graph.Counts{Entities: cg.Entities, Relationships: cg.Relationships})
}
