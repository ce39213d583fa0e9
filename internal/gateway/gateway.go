package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/providers/avatar"
	"github.com/yoockh/yoopersona/internal/providers/text"
	"github.com/yoockh/yoopersona/internal/providers/voice"
	"github.com/yoockh/yoopersona/internal/utils"
)

// Avatar actions.
const (
	ActionGenerate = "generate"
	ActionStatus   = "status"
)

// legacyCategory maps each category to the provider-named row the config
// table carried before categories existed. Exactly one synonym per category.
var legacyCategory = map[string]string{
	models.CategoryLLM:    "claude",
	models.CategoryVoice:  "elevenlabs",
	models.CategoryAvatar: "did",
}

// ConfigStore is the read contract against the provider config table.
// Looked up on every call so an activation toggle applies to the next
// invocation without a restart.
type ConfigStore interface {
	Get(ctx context.Context, category string) (*models.ProviderConfig, error)
}

// Request carries the per-category payload. Prompt/MaxTokens for llm,
// Text/VoiceID for voice, Action plus AvatarID/VoiceID/Script or JobID
// for avatar.
type Request struct {
	Prompt    string
	MaxTokens int

	Text    string
	VoiceID string

	Action   string
	AvatarID string
	Script   string
	JobID    string
}

type Result struct {
	Text        string
	AudioBase64 string
	AudioMIME   string
	JobID       string
	Status      string
	MediaURL    string
}

// Gateway is the single entry point in front of the external AI providers.
// Every adapter call is attempted exactly once; retry and fallback policy
// belongs to the caller, which knows which stage results are reusable.
type Gateway struct {
	Configs ConfigStore
	Logger  *logrus.Logger

	// HTTPClient is shared by all adapters; its timeout bounds every
	// outbound round trip so a hung provider cannot stall a caller.
	HTTPClient *http.Client

	// Base URL overrides, empty in production.
	OpenAIBaseURL     string
	AnthropicBaseURL  string
	ElevenLabsBaseURL string
	DIDBaseURL        string
}

func New(configs ConfigStore, l *logrus.Logger) *Gateway {
	return &Gateway{
		Configs:    configs,
		Logger:     l,
		HTTPClient: &http.Client{Timeout: 45 * time.Second},
	}
}

func (g *Gateway) Invoke(ctx context.Context, category string, req Request) (*Result, error) {
	const op = "Gateway.Invoke"

	cfg, err := g.resolve(ctx, category)
	if err != nil {
		return nil, err
	}

	switch category {
	case models.CategoryLLM:
		return g.invokeText(ctx, cfg, req)
	case models.CategoryVoice:
		return g.invokeVoice(ctx, cfg, req)
	case models.CategoryAvatar:
		return g.invokeAvatar(ctx, cfg, req)
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown category: "+category, nil)
	}
}

// resolve looks up the category config, falling back to the legacy
// provider-named row exactly once when the primary yields no usable key.
func (g *Gateway) resolve(ctx context.Context, category string) (*models.ProviderConfig, error) {
	const op = "Gateway.resolve"

	cfg, err := g.Configs.Get(ctx, category)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "config lookup failed", err)
	}
	if cfg.Usable() {
		return cfg, nil
	}

	legacy, ok := legacyCategory[category]
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown category: "+category, nil)
	}

	cfg, err = g.Configs.Get(ctx, legacy)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "legacy config lookup failed", err)
	}
	if cfg.Usable() {
		if g.Logger != nil {
			g.Logger.WithFields(logrus.Fields{"category": category, "legacy": legacy}).
				Debug("resolved provider config via legacy name")
		}
		return cfg, nil
	}

	return nil, utils.E(utils.CodeProviderNotConfigured, op,
		"no active provider config for category "+category, nil)
}

func (g *Gateway) invokeText(ctx context.Context, cfg *models.ProviderConfig, req Request) (*Result, error) {
	const op = "Gateway.invokeText"

	var p text.Provider
	switch cfg.Setting("provider") {
	case "", "openai":
		p = text.NewOpenAI(cfg.APIKey, g.OpenAIBaseURL, cfg.Setting("model"), g.HTTPClient)
	case "claude":
		p = text.NewClaude(cfg.APIKey, g.AnthropicBaseURL, cfg.Setting("model"), g.HTTPClient)
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op,
			"unknown text provider: "+cfg.Setting("provider"), nil)
	}

	out, err := p.Complete(ctx, req.Prompt, req.MaxTokens)
	if err != nil {
		return nil, err
	}
	return &Result{Text: out}, nil
}

func (g *Gateway) invokeVoice(ctx context.Context, cfg *models.ProviderConfig, req Request) (*Result, error) {
	p := voice.NewElevenLabs(cfg.APIKey, g.ElevenLabsBaseURL, g.HTTPClient)

	audio, mime, err := p.Synthesize(ctx, req.Text, req.VoiceID)
	if err != nil {
		return nil, err
	}
	return &Result{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		AudioMIME:   mime,
	}, nil
}

func (g *Gateway) invokeAvatar(ctx context.Context, cfg *models.ProviderConfig, req Request) (*Result, error) {
	const op = "Gateway.invokeAvatar"

	p := avatar.NewDID(cfg.APIKey, g.DIDBaseURL, g.HTTPClient)

	switch req.Action {
	case ActionGenerate:
		if req.AvatarID == "" || req.Script == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "generate requires avatar_id and script", nil)
		}
		jobID, err := p.CreateJob(ctx, avatar.CreateJobRequest{
			AvatarID: req.AvatarID,
			VoiceID:  req.VoiceID,
			Script:   req.Script,
		})
		if err != nil {
			return nil, err
		}
		return &Result{JobID: jobID, Status: avatar.StateProcessing}, nil

	case ActionStatus:
		if req.JobID == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "status requires job_id", nil)
		}
		st, err := p.JobStatus(ctx, req.JobID)
		if err != nil {
			return nil, err
		}
		return &Result{JobID: req.JobID, Status: st.State, MediaURL: st.MediaURL}, nil

	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown avatar action: "+req.Action, nil)
	}
}
