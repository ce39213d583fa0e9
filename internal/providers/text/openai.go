package text

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/yoockh/yoopersona/internal/utils"
)

const openAIDefaultBase = "https://api.openai.com/v1"

type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAI(apiKey, baseURL, model string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = openAIDefaultBase
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{apiKey: apiKey, baseURL: baseURL, model: model, client: client}
}

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAI) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	const op = "OpenAI.Complete"

	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:     p.model,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "chat completion request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", utils.E(utils.CodeInvalidProviderResponse, op, "unparseable completion payload", err)
	}
	if parsed.Error != nil {
		return "", utils.E(utils.CodeUnavailable, op, parsed.Error.Message, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", utils.E(utils.CodeUnavailable, op, "provider returned "+resp.Status, nil)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", utils.E(utils.CodeInvalidProviderResponse, op, "completion payload missing choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}
