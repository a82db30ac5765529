package emotion

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/hubenschmidt/emotion-gateway/internal/metrics"
)

const visionPrompt = `Score the facial emotion in this photograph. Respond with only a JSON object ` +
	`mapping each of "happy", "sad", "angry", "surprise", "fear", "disgust", "neutral" ` +
	`to a number between 0 and 100. The scores should sum to roughly 100. No prose.`

// OpenAIVisionClient scores emotions with a vision-capable chat model behind
// any OpenAI-compatible endpoint. Slower and costlier than the DeepFace
// sidecar; registered as an alternate engine.
type OpenAIVisionClient struct {
	client openai.Client
	model  string
}

// NewOpenAIVisionClient creates a vision classifier for the given endpoint and model.
// baseURL may be empty to use the OpenAI default.
func NewOpenAIVisionClient(apiKey, baseURL, model string) *OpenAIVisionClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIVisionClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// ClassifyEmotion sends the image as an inline data URI and parses the
// model's JSON reply into an emotion-score mapping.
func (c *OpenAIVisionClient) ClassifyEmotion(ctx context.Context, image []byte) (map[string]float64, error) {
	start := time.Now()

	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(visionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURI}),
			}),
		},
	})
	if err != nil {
		metrics.Errors.WithLabelValues("classify", "openai").Inc()
		return nil, fmt.Errorf("openai vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai vision response has no choices")
	}

	scores, err := parseScoreJSON(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.Errors.WithLabelValues("classify", "decode").Inc()
		return nil, err
	}

	metrics.ClassifyDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	return scores, nil
}

// parseScoreJSON extracts the score object from the model reply, tolerating
// markdown code fences around the JSON.
func parseScoreJSON(reply string) (map[string]float64, error) {
	text := strings.TrimSpace(reply)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			text = text[i : j+1]
		}
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(text), &scores); err != nil {
		return nil, fmt.Errorf("parse vision scores: %w", err)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("vision reply has no scores")
	}
	return scores, nil
}
