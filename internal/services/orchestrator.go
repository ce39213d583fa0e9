package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoopersona/internal/gateway"
	"github.com/yoockh/yoopersona/internal/logger"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/parser"
	"github.com/yoockh/yoopersona/internal/persona"
	"github.com/yoockh/yoopersona/internal/providers/stt"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
)

// Invoker is the gateway surface the orchestrator and poller depend on.
type Invoker interface {
	Invoke(ctx context.Context, category string, req gateway.Request) (*gateway.Result, error)
}

// JobTracker schedules background tracking of a render job. Fire-and-forget.
type JobTracker interface {
	Track(jobID, recordID string)
}

// Orchestrator drives one interaction through
// processing -> {completed, failed}. The only paths to failed are a
// provider-reported job failure or poll-budget exhaustion, both owned by the
// poller; every failure inside Run itself degrades to a text-only completed
// record. No error escapes Run.
type Orchestrator struct {
	Interactions pgrepo.InteractionRepo
	Personas     pgrepo.PersonaRepo
	Context      *persona.Builder
	Gateway      Invoker
	Poller       JobTracker

	STT    stt.Provider // optional; recorded prompts stay untranscribed without it
	Events EventSink    // optional

	Logger     *logrus.Logger
	HTTPClient *http.Client // fetches recorded prompt audio
	MaxTokens  int
}

func (o *Orchestrator) Run(ctx context.Context, recordID string) {
	log := logger.Component(o.Logger, "orchestrator").WithField("interaction_id", recordID)

	rec, err := o.Interactions.GetByID(ctx, recordID)
	if err != nil {
		log.WithError(err).Warn("record load failed")
		return
	}
	if rec.Terminal() {
		return
	}
	if rec.MediaJobID != nil {
		// A prior run already committed a render job for this record. Its
		// poll chain owns the rest; re-running the text or media stages here
		// would clobber the persisted reply and bill a duplicate job.
		log.WithField("job_id", *rec.MediaJobID).Debug("render job already committed; skipping")
		return
	}

	pctx := o.Context.Build(ctx, rec.UserID)

	input, transcript := o.resolveInput(ctx, rec, log)

	// Stage 1: text. The reply is persisted before any media work so it
	// survives whatever the media stage does.
	responseText, meta := o.generateText(ctx, rec, pctx, input, transcript, log)
	if err := o.Interactions.SetResponseText(ctx, rec.ID, responseText, meta); err != nil {
		log.WithError(err).Error("response persist failed")
		return
	}
	o.emit(ctx, rec.ID, "text", "done", "", 0)

	// Stage 2: media, only when the persona carries both identities.
	p, perr := o.Personas.GetByUserID(ctx, rec.UserID)
	if perr != nil || !p.HasMediaIdentities() {
		o.emit(ctx, rec.ID, "media", "skipped", "no media identities", 0)
		o.completeTextOnly(ctx, rec.ID, log)
		return
	}

	res, err := o.Gateway.Invoke(ctx, models.CategoryAvatar, gateway.Request{
		Action:   gateway.ActionGenerate,
		AvatarID: p.AvatarID,
		VoiceID:  p.VoiceID,
		Script:   responseText,
	})
	if err != nil || res.JobID == "" {
		// A reply is still useful without a video; media failure never
		// masks a working text reply.
		if err != nil {
			log.WithError(err).Warn("avatar job creation failed; completing text-only")
			o.emit(ctx, rec.ID, "media", "failed", err.Error(), 0)
		} else {
			log.Warn("avatar job created without handle; completing text-only")
			o.emit(ctx, rec.ID, "media", "failed", "no job handle", 0)
		}
		o.completeTextOnly(ctx, rec.ID, log)
		return
	}

	claimed, cerr := o.Interactions.ClaimMediaJob(ctx, rec.ID, res.JobID)
	if cerr != nil {
		log.WithError(cerr).Error("media job claim failed; completing text-only")
		o.completeTextOnly(ctx, rec.ID, log)
		return
	}
	if !claimed {
		// A concurrent run already claimed a job for this record; its
		// poll chain owns the terminal transition.
		log.Debug("media job already claimed by another run")
		return
	}

	o.emit(ctx, rec.ID, "media", "done", res.JobID, 0)
	o.Poller.Track(res.JobID, rec.ID)
}

func (o *Orchestrator) generateText(ctx context.Context, rec *models.Interaction, pctx persona.Context, input, transcript string, log *logrus.Entry) (string, []byte) {
	o.emit(ctx, rec.ID, "text", "started", "", 0)

	prompt := pctx.PromptBlock() +
		"\nThey said:\n" + input + "\n\n" +
		"Reply with labeled sections: an optional \"Title:\" line, a \"Message:\" body, and an optional closing \"Quote:\"."

	res, err := o.Gateway.Invoke(ctx, models.CategoryLLM, gateway.Request{
		Prompt:    prompt,
		MaxTokens: o.MaxTokens,
	})
	if err != nil {
		log.WithError(err).Warn("text generation failed; using fallback reply")
		o.emit(ctx, rec.ID, "text", "failed", err.Error(), 0)
		return pctx.FallbackReply(), nil
	}

	reply := parser.Parse(res.Text)
	responseText := reply.Message
	if responseText == "" {
		responseText = strings.TrimSpace(res.Text)
	}

	meta, _ := json.Marshal(map[string]any{
		"reply":      reply,
		"transcript": transcript,
	})
	return responseText, meta
}

// resolveInput returns the prompt text for the record: the submitted text,
// or a transcript of the recorded prompt when only a recording was given.
// Transcription failure is non-fatal.
func (o *Orchestrator) resolveInput(ctx context.Context, rec *models.Interaction, log *logrus.Entry) (input, transcript string) {
	if rec.InputText != "" {
		return rec.InputText, ""
	}
	if rec.InputRef == "" {
		return "(no message content)", ""
	}
	if o.STT == nil {
		log.Warn("recorded prompt without transcription provider")
		return "(a recorded message that could not be transcribed)", ""
	}

	audio, err := o.fetchAudio(ctx, rec.InputRef)
	if err != nil {
		log.WithError(err).Warn("recorded prompt fetch failed")
		return "(a recorded message that could not be transcribed)", ""
	}

	text, _, err := o.STT.Transcribe(ctx, audio, "")
	if err != nil || text == "" {
		log.WithError(err).Warn("transcription failed")
		return "(a recorded message that could not be transcribed)", ""
	}
	return text, text
}

func (o *Orchestrator) fetchAudio(ctx context.Context, ref string) ([]byte, error) {
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	const maxBytes = 10 << 20
	return io.ReadAll(io.LimitReader(resp.Body, maxBytes))
}

func (o *Orchestrator) completeTextOnly(ctx context.Context, id string, log *logrus.Entry) {
	ok, err := o.Interactions.Complete(ctx, id, nil)
	if err != nil {
		log.WithError(err).Error("complete failed")
		return
	}
	if ok {
		o.emit(ctx, id, "interaction", models.InteractionCompleted, "", 0)
	}
}

func (o *Orchestrator) emit(ctx context.Context, id, stage, status, detail string, attempt int) {
	if o.Events == nil {
		return
	}
	o.Events.Emit(ctx, &models.InteractionEvent{
		InteractionID: id,
		Stage:         stage,
		Status:        status,
		Detail:        detail,
		Attempt:       attempt,
	})
}
