package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/yoockh/yoopersona/internal/utils"
)

const didDefaultBase = "https://api.d-id.com"

// DID drives the D-ID talks API: one POST to create a lip-synced video job,
// GETs to poll it.
type DID struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewDID(apiKey, baseURL string, client *http.Client) *DID {
	if baseURL == "" {
		baseURL = didDefaultBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DID{apiKey: apiKey, baseURL: baseURL, client: client}
}

type didScript struct {
	Type     string           `json:"type"`
	Input    string           `json:"input"`
	Provider didVoiceProvider `json:"provider"`
}

type didVoiceProvider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

type didCreateRequest struct {
	SourceURL string    `json:"source_url"`
	Script    didScript `json:"script"`
}

type didTalk struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     *struct {
		Kind        string `json:"kind"`
		Description string `json:"description"`
	} `json:"error"`
}

func (p *DID) CreateJob(ctx context.Context, r CreateJobRequest) (string, error) {
	const op = "DID.CreateJob"

	body, err := json.Marshal(didCreateRequest{
		SourceURL: r.AvatarID,
		Script: didScript{
			Type:     "text",
			Input:    r.Script,
			Provider: didVoiceProvider{Type: "elevenlabs", VoiceID: r.VoiceID},
		},
	})
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/talks", bytes.NewReader(body))
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "talk creation request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", utils.E(utils.CodeRenderJobFailed, op, "provider rejected job: "+resp.Status, nil)
	}

	var talk didTalk
	if err := json.Unmarshal(raw, &talk); err != nil {
		return "", utils.E(utils.CodeInvalidProviderResponse, op, "unparseable talk payload", err)
	}
	if talk.ID == "" {
		return "", utils.E(utils.CodeInvalidProviderResponse, op, "talk payload missing id", nil)
	}
	return talk.ID, nil
}

func (p *DID) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	const op = "DID.JobStatus"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/talks/"+jobID, nil)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "build request", err)
	}
	req.Header.Set("Authorization", "Basic "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "talk status request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, utils.E(utils.CodeUnavailable, op, "provider returned "+resp.Status, nil)
	}

	var talk didTalk
	if err := json.Unmarshal(raw, &talk); err != nil {
		return nil, utils.E(utils.CodeInvalidProviderResponse, op, "unparseable talk payload", err)
	}

	out := &JobStatus{State: normalizeState(talk.Status)}
	if out.State == StateCompleted {
		out.MediaURL = talk.ResultURL
	}
	return out, nil
}

func normalizeState(s string) string {
	switch s {
	case "created":
		return StatePending
	case "started":
		return StateProcessing
	case "done":
		return StateCompleted
	case "error", "rejected":
		return StateFailed
	default:
		return StateUnknown
	}
}
