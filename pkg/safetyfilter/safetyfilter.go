package safetyfilter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = `You review prompts for a text-to-image model. Respond with a JSON object
{"allowed": bool, "reason": string} where allowed is false only for prompts
requesting sexual content involving minors, non-consensual sexual imagery of
real people, or instructions for serious physical harm. Everything else is
allowed. Keep reason short and empty when allowed.`

// Deterministic moderation verdicts across retries.
const seed int64 = 420

// Filter screens prompts through a chat model before generation. Optional:
// the server runs without it when no API key is configured.
type Filter struct {
	client *openai.Client
}

func NewFilter(apiKey string) (*Filter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &Filter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func (f *Filter) Evaluate(ctx context.Context, prompt string) (*Verdict, error) {
	completion, err := f.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Prompt: %s", prompt)),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		),
		Seed:        openai.F(seed),
		Model:       openai.F(openai.ChatModelGPT4oMini),
		Temperature: openai.F(0.0),
	})
	if err != nil {
		return nil, fmt.Errorf("safety filter request failed: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("safety filter returned no verdict")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &verdict); err != nil {
		return nil, fmt.Errorf("could not parse safety filter response: %w", err)
	}

	return &verdict, nil
}
