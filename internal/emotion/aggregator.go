package emotion

import (
	"context"
	"log/slog"

	"github.com/hubenschmidt/emotion-gateway/internal/metrics"
	"github.com/hubenschmidt/emotion-gateway/internal/session"
)

// Classifier routes one image to a classifier backend by engine name.
// Satisfied by *ClassifierRouter.
type Classifier interface {
	Classify(ctx context.Context, image []byte, engine string) (map[string]float64, error)
}

// outcome is the explicit result of classifying one input: either a score
// mapping or a failure reason that triggers the fallback vocabulary.
type outcome struct {
	scores map[string]float64
	err    error
}

// Aggregator folds a session's inputs into per-emotion time series.
// Inputs are processed strictly sequentially; the classifier is treated as a
// single shared capability.
type Aggregator struct {
	classifier Classifier
}

// NewAggregator creates an aggregator over the given classifier.
func NewAggregator(classifier Classifier) *Aggregator {
	return &Aggregator{classifier: classifier}
}

// Aggregate processes inputs in submission order and returns the mapping
// from emotion label to its ordered (timestamp, value) series. Per-item
// failures never propagate: any input whose payload cannot be resolved or
// whose classification fails contributes a zero-valued entry to every label
// of the fallback vocabulary, so all series of a finalized session have one
// entry per input. Scores pass through unmodified.
func (a *Aggregator) Aggregate(ctx context.Context, inputs []session.InputItem, engine string) map[string][]session.Point {
	results := make(map[string][]session.Point)

	for _, item := range inputs {
		out := a.classifyItem(ctx, item, engine)
		if out.err != nil {
			slog.Warn("input fell back to zero scores", "timestamp", item.Timestamp, "engine", engine, "error", out.err)
			metrics.Fallbacks.Inc()
			for _, label := range FallbackEmotions {
				results[label] = append(results[label], session.Point{Timestamp: item.Timestamp, Value: 0.0})
			}
			continue
		}
		for label, score := range out.scores {
			results[label] = append(results[label], session.Point{Timestamp: item.Timestamp, Value: score})
		}
	}

	return results
}

func (a *Aggregator) classifyItem(ctx context.Context, item session.InputItem, engine string) outcome {
	image, err := ResolvePayload(item.File)
	if err != nil {
		metrics.Errors.WithLabelValues("resolve", "payload").Inc()
		return outcome{err: err}
	}

	scores, err := a.classifier.Classify(ctx, image, engine)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{scores: scores}
}
