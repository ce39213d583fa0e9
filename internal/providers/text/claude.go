package text

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/yoockh/yoopersona/internal/utils"
)

const (
	anthropicDefaultBase = "https://api.anthropic.com"
	anthropicVersion     = "2023-06-01"
)

type Claude struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewClaude(apiKey, baseURL, model string, client *http.Client) *Claude {
	if baseURL == "" {
		baseURL = anthropicDefaultBase
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Claude{apiKey: apiKey, baseURL: baseURL, model: model, client: client}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Claude) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	const op = "Claude.Complete"

	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "messages request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", utils.E(utils.CodeInvalidProviderResponse, op, "unparseable messages payload", err)
	}
	if parsed.Error != nil {
		return "", utils.E(utils.CodeUnavailable, op, parsed.Error.Message, nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", utils.E(utils.CodeUnavailable, op, "provider returned "+resp.Status, nil)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", utils.E(utils.CodeInvalidProviderResponse, op, "messages payload missing text block", nil)
}
