// Package emotion converts a session's ordered input list into per-emotion
// time series by running each image through an external facial-emotion
// classifier backend.
package emotion

import (
	"context"
	"net/http"
	"time"
)

// FallbackEmotions is the fixed vocabulary substituted when classification
// fails for an item: every label receives a zero-valued entry so series stay
// aligned in length across a session.
var FallbackEmotions = []string{"happy", "sad", "angry", "surprise", "fear", "disgust", "neutral"}

// EmotionClassifier scores one image, returning a mapping from emotion label
// to a raw score in whatever scale the backend emits. Implementations must
// tolerate images where no face is confidently detected and still return a
// best-effort distribution.
type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, image []byte) (map[string]float64, error)
}

// ClassifierRouter dispatches to the correct classifier backend by engine name.
// Wraps the generic Router with a classify convenience method.
type ClassifierRouter struct {
	*Router[EmotionClassifier]
}

// NewClassifierRouter creates a router with registered classifier backends
// and a fallback default engine.
func NewClassifierRouter(backends map[string]EmotionClassifier, fallback string) *ClassifierRouter {
	return &ClassifierRouter{Router: NewRouter(backends, fallback)}
}

// Classify routes to the requested backend and classifies the image.
func (r *ClassifierRouter) Classify(ctx context.Context, image []byte, engine string) (map[string]float64, error) {
	backend, err := r.Route(engine)
	if err != nil {
		return nil, err
	}
	return backend.ClassifyEmotion(ctx, image)
}

// NewPooledHTTPClient creates an http.Client with connection pooling and tuned transport.
func NewPooledHTTPClient(poolSize int, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          poolSize,
			MaxIdleConnsPerHost:   poolSize,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}
