package llm

import (
	"context"
	"errors"

	genai "google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash-001"

var ErrEmptyResponse = errors.New("llm: model returned no candidates")

// GeminiClient is a thin wrapper around the official genai client. It sends
// the three prompt roles as a scripted multi-turn exchange so the model
// acknowledges the persona and output contract before seeing the payload.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) GenerateText(ctx context.Context, p Prompt) (string, error) {
	contents := []*genai.Content{
		userTurn(p.System),
		modelTurn("I understand. I am AI Data Engineer, ready to analyze file samples and provide storage & ETL recommendations."),
		userTurn(p.Developer),
		modelTurn("I understand the required JSON output format and will follow it exactly."),
		userTurn(p.User),
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func userTurn(text string) *genai.Content {
	return &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
}

func modelTurn(text string) *genai.Content {
	return &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}}
}
