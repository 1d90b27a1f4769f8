package pipeline

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/siherrmann/codegraph/helper"
)

// EncodeFunc turns a text into an embedding vector.
type EncodeFunc func(text string) ([]float32, error)

// EncodeBatchFunc turns texts into embedding vectors, one per text and in order.
type EncodeBatchFunc func(texts []string) ([][]float32, error)

// Batch runs f once per text.
func (f EncodeFunc) Batch() EncodeBatchFunc {
	return func(texts []string) ([][]float32, error) {
		vectors := make([][]float32, 0, len(texts))
		for _, text := range texts {
			vector, err := f(text)
			if err != nil {
				return nil, err
			}
			vectors = append(vectors, vector)
		}
		return vectors, nil
	}
}

// Encoder bundles single and batch encoding of one model.
type Encoder struct {
	Encode      EncodeFunc
	EncodeBatch EncodeBatchFunc
	close       func() error
}

// Close releases the model session.
func (e *Encoder) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	return e.close()
}

// DefaultEncoder creates an encoder from a sentence transformer model on the
// hugot Go backend. The model is downloaded into ./models on first use.
// Vectors are returned as pooled by the model, without normalization.
func DefaultEncoder(modelName string) (*Encoder, error) {
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "codegraph-encoder",
	}
	featurePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create feature extraction pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create feature extraction pipeline: %w", err)
	}

	encodeBatch := func(texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return nil, nil
		}
		result, err := featurePipeline.RunPipeline(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(result.Embeddings) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
		}
		return result.Embeddings, nil
	}

	return &Encoder{
		Encode: func(text string) ([]float32, error) {
			vectors, err := encodeBatch([]string{text})
			if err != nil {
				return nil, err
			}
			return vectors[0], nil
		},
		EncodeBatch: encodeBatch,
		close:       session.Destroy,
	}, nil
}
