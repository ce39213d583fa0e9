package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/yoockh/yoopersona/internal/utils"
)

const elevenLabsDefaultBase = "https://api.elevenlabs.io"

type ElevenLabs struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewElevenLabs(apiKey, baseURL string, client *http.Client) *ElevenLabs {
	if baseURL == "" {
		baseURL = elevenLabsDefaultBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   "eleven_multilingual_v2",
		client:  client,
	}
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// elevenLabsError covers both detail-object and detail-string error bodies.
type elevenLabsError struct {
	Detail json.RawMessage `json:"detail"`
}

func (p *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, string, error) {
	const op = "ElevenLabs.Synthesize"

	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	body, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: p.model})
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "marshal request", err)
	}

	url := p.baseURL + "/v1/text-to-speech/" + voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", utils.E(utils.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", utils.E(utils.CodeUnavailable, op, "text-to-speech request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the provider's own error detail when it gives one.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var e elevenLabsError
		if json.Unmarshal(raw, &e) == nil && len(e.Detail) > 0 {
			return nil, "", utils.E(utils.CodeSynthesisFailed, op, string(e.Detail), nil)
		}
		return nil, "", utils.E(utils.CodeSynthesisFailed, op, "voice synthesis failed: "+resp.Status, nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", utils.E(utils.CodeUnavailable, op, "reading audio", err)
	}
	return audio, "audio/mpeg", nil
}
