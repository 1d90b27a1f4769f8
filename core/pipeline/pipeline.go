package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/model"
)

// DefaultBatchSize is the number of nodes encoded per batch.
const DefaultBatchSize = 32

// GraphReader reads every entity with its direct neighbors.
type GraphReader interface {
	SelectAllEntityNeighborhoods(ctx context.Context) ([]*model.EntityNeighborhood, error)
}

// ProgressObserver receives progress events of a pipeline run.
type ProgressObserver interface {
	OnProgress(event model.ProgressEvent)
}

// ProgressFunc adapts a function to a ProgressObserver.
type ProgressFunc func(event model.ProgressEvent)

func (f ProgressFunc) OnProgress(event model.ProgressEvent) {
	f(event)
}

// RunSummary is the outcome of a pipeline run.
type RunSummary struct {
	Nodes    int   `json:"nodes"`
	Embedded int   `json:"embedded"`
	Err      error `json:"-"`
}

// Pipeline embeds every graph node together with its neighborhood and
// replaces the vector store contents with the result.
type Pipeline struct {
	reader    GraphReader
	store     VectorStore
	encode    EncodeBatchFunc
	batchSize int
	log       *slog.Logger
}

// NewPipeline creates a Pipeline. A batchSize below 1 uses DefaultBatchSize,
// a nil logger uses slog.Default.
func NewPipeline(reader GraphReader, store VectorStore, encode EncodeBatchFunc, batchSize int, logger *slog.Logger) *Pipeline {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		reader:    reader,
		store:     store,
		encode:    encode,
		batchSize: batchSize,
		log:       logger,
	}
}

// Run embeds all nodes and persists the vectors once at the end.
// Failures are reported through the observer and the summary, never returned or raised.
func (p *Pipeline) Run(ctx context.Context, observer ProgressObserver) *RunSummary {
	report := func(percent float64, state model.ProgressState, message string) {
		if observer != nil {
			observer.OnProgress(model.ProgressEvent{Percent: percent, Message: message, State: state})
		}
	}
	summary := &RunSummary{}

	neighborhoods, err := p.reader.SelectAllEntityNeighborhoods(ctx)
	if err != nil {
		p.log.Error("Failed to read graph nodes", slog.String("error", err.Error()))
		report(100, model.ProgressCompleted, "complete (no nodes)")
		return summary
	}
	summary.Nodes = len(neighborhoods)

	var ids []uuid.UUID
	var texts []string
	for _, n := range neighborhoods {
		text := EnrichmentText(n)
		if strings.TrimSpace(text) == "" {
			continue
		}
		ids = append(ids, n.Entity.ID)
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		report(100, model.ProgressCompleted, "complete (no nodes)")
		return summary
	}

	report(0, model.ProgressRunning, fmt.Sprintf("embedding %d nodes", len(texts)))

	records := make([]model.EmbeddingRecord, 0, len(texts))
	for i := 0; i < len(texts); i += p.batchSize {
		if err := ctx.Err(); err != nil {
			return p.fail(summary, report, fmt.Errorf("embedding cancelled: %w", err))
		}

		end := min(i+p.batchSize, len(texts))
		vectors, err := p.encode(texts[i:end])
		if err != nil {
			return p.fail(summary, report, fmt.Errorf("batch %d-%d: %w", i, end, err))
		}
		if len(vectors) != end-i {
			return p.fail(summary, report, fmt.Errorf("batch %d-%d: expected %d vectors, got %d", i, end, end-i, len(vectors)))
		}

		for j, vector := range vectors {
			records = append(records, model.EmbeddingRecord{EntityID: ids[i+j], Vector: vector})
		}

		percent := math.Min(100, float64(i+p.batchSize)/float64(len(texts))*100)
		report(percent, model.ProgressRunning, fmt.Sprintf("embedded %d/%d nodes", end, len(texts)))
	}

	if err := p.store.Replace(ctx, records); err != nil {
		return p.fail(summary, report, fmt.Errorf("persist embeddings: %w", err))
	}
	summary.Embedded = len(records)

	p.log.Info("Embedded graph nodes", slog.Int("nodes", summary.Nodes), slog.Int("embedded", summary.Embedded))
	report(100, model.ProgressCompleted, fmt.Sprintf("complete (%d nodes)", summary.Embedded))

	return summary
}

func (p *Pipeline) fail(summary *RunSummary, report func(float64, model.ProgressState, string), err error) *RunSummary {
	p.log.Error("Embedding pipeline failed", slog.Int("nodes", summary.Nodes), slog.String("error", err.Error()))
	summary.Err = err
	report(100, model.ProgressFailed, err.Error())
	return summary
}

// Start runs the pipeline in a goroutine. The channel receives every progress
// event and is closed after the final one.
func (p *Pipeline) Start(ctx context.Context) <-chan model.ProgressEvent {
	events := make(chan model.ProgressEvent, 1)
	go func() {
		defer close(events)
		p.Run(ctx, ProgressFunc(func(event model.ProgressEvent) {
			// The final event is always delivered unless the reader is gone.
			if event.Done() {
				if ctx.Err() == nil {
					events <- event
					return
				}
				select {
				case events <- event:
				default:
				}
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}))
	}()
	return events
}

// EnrichmentText is the text embedded for a node: its own text followed by one
// sentence per distinct named neighbor.
func EnrichmentText(n *model.EntityNeighborhood) string {
	if n == nil || n.Entity == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(n.Entity.Text())

	seen := map[string]bool{}
	for _, neighbor := range n.Neighbors {
		if neighbor.TargetNodeName == "" {
			continue
		}
		sentence := fmt.Sprintf(" This node has relation '%s' with neighbor '%s'.", neighbor.RelType, neighbor.TargetNodeName)
		if seen[sentence] {
			continue
		}
		seen[sentence] = true
		sb.WriteString(sentence)
	}

	return sb.String()
}
