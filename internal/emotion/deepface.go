package emotion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hubenschmidt/emotion-gateway/internal/metrics"
)

// DeepFaceClient calls a DeepFace HTTP sidecar for per-image emotion scores.
// The sidecar is asked for emotion-only analysis with detection enforcement
// off, so a frame with no confident face still yields a distribution instead
// of an error.
type DeepFaceClient struct {
	url    string
	client *http.Client
}

// NewDeepFaceClient creates a client for the DeepFace sidecar at url.
func NewDeepFaceClient(url string, poolSize int) *DeepFaceClient {
	return &DeepFaceClient{
		url:    url,
		client: NewPooledHTTPClient(poolSize, 60*time.Second),
	}
}

type analyzeRequest struct {
	ImgPath          string   `json:"img_path"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
}

type analyzeResult struct {
	Emotion map[string]float64 `json:"emotion"`
}

// ClassifyEmotion posts the image inline and returns the first result's
// emotion-score mapping. The sidecar may answer with either a result list or
// a single object.
func (c *DeepFaceClient) ClassifyEmotion(ctx context.Context, image []byte) (map[string]float64, error) {
	start := time.Now()

	body, err := json.Marshal(analyzeRequest{
		ImgPath:          "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		Actions:          []string{"emotion"},
		EnforceDetection: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("classify", "http").Inc()
		return nil, fmt.Errorf("deepface request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.Errors.WithLabelValues("classify", "status").Inc()
		return nil, fmt.Errorf("deepface status %d: %s", resp.StatusCode, respBody)
	}

	scores, err := decodeAnalyzeResponse(resp.Body)
	if err != nil {
		metrics.Errors.WithLabelValues("classify", "decode").Inc()
		return nil, err
	}

	metrics.ClassifyDuration.WithLabelValues("deepface").Observe(time.Since(start).Seconds())
	return scores, nil
}

// decodeAnalyzeResponse accepts the sidecar's result-list envelope, a bare
// list, or a single result object, taking the first result in either case.
func decodeAnalyzeResponse(body io.Reader) (map[string]float64, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode deepface response: %w", err)
	}

	var envelope struct {
		Results []analyzeResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Results) > 0 {
		return firstEmotion(envelope.Results)
	}

	var list []analyzeResult
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return firstEmotion(list)
	}

	var single analyzeResult
	if err := json.Unmarshal(raw, &single); err == nil && len(single.Emotion) > 0 {
		return single.Emotion, nil
	}

	return nil, fmt.Errorf("deepface response has no emotion result")
}

func firstEmotion(results []analyzeResult) (map[string]float64, error) {
	if len(results[0].Emotion) == 0 {
		return nil, fmt.Errorf("deepface result has empty emotion map")
	}
	return results[0].Emotion, nil
}
