package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/yoopersona/internal/gateway"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/persona"
	"github.com/yoockh/yoopersona/internal/utils"
)

// memInteractionRepo mirrors the guarded-update semantics of the Postgres
// repo: terminal transitions and job claims only land while the record is
// still processing.
type memInteractionRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Interaction
}

func newMemInteractionRepo(rows ...*models.Interaction) *memInteractionRepo {
	m := &memInteractionRepo{rows: map[string]*models.Interaction{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memInteractionRepo) Insert(_ context.Context, row *models.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID] = row
	return nil
}

func (m *memInteractionRepo) GetByID(_ context.Context, id string) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memInteractionRepo) ListByUser(_ context.Context, userID string, _ int) ([]models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Interaction
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memInteractionRepo) MarkProcessing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.Status == models.InteractionPending {
		r.Status = models.InteractionProcessing
	}
	return nil
}

func (m *memInteractionRepo) SetResponseText(_ context.Context, id, text string, metadata []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.Status == models.InteractionProcessing {
		r.ResponseText = &text
		if len(metadata) > 0 {
			r.Metadata = metadata
		}
	}
	return nil
}

func (m *memInteractionRepo) ClaimMediaJob(_ context.Context, id, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != models.InteractionProcessing || r.MediaJobID != nil {
		return false, nil
	}
	r.MediaJobID = &jobID
	return true, nil
}

func (m *memInteractionRepo) Complete(_ context.Context, id string, mediaURL *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != models.InteractionProcessing {
		return false, nil
	}
	r.Status = models.InteractionCompleted
	if mediaURL != nil {
		r.MediaURL = mediaURL
	}
	return true, nil
}

func (m *memInteractionRepo) Fail(_ context.Context, id, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != models.InteractionProcessing {
		return false, nil
	}
	r.Status = models.InteractionFailed
	r.FailureReason = &reason
	return true, nil
}

type memPersonaRepo struct {
	personas map[string]*models.Persona
}

func (m *memPersonaRepo) GetByUserID(_ context.Context, userID string) (*models.Persona, error) {
	p, ok := m.personas[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return p, nil
}

func (m *memPersonaRepo) Upsert(_ context.Context, p *models.Persona) error {
	m.personas[p.UserID] = p
	return nil
}

type memStoryRepo struct{}

func (memStoryRepo) Insert(_ context.Context, _ *models.LifeStory) error { return nil }
func (memStoryRepo) LatestN(_ context.Context, _ string, _ int) ([]models.LifeStory, error) {
	return nil, nil
}

// scriptedInvoker returns canned results per category.
type scriptedInvoker struct {
	mu      sync.Mutex
	calls   []string
	prompts []string

	textResult *gateway.Result
	textErr    error

	avatarResult *gateway.Result
	avatarErr    error
}

func (s *scriptedInvoker) Invoke(_ context.Context, category string, req gateway.Request) (*gateway.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, category)
	if category == models.CategoryLLM {
		s.prompts = append(s.prompts, req.Prompt)
	}
	s.mu.Unlock()

	switch category {
	case models.CategoryLLM:
		return s.textResult, s.textErr
	case models.CategoryAvatar:
		return s.avatarResult, s.avatarErr
	}
	return nil, utils.E(utils.CodeInvalidArgument, "scriptedInvoker", "unexpected category "+category, nil)
}

func (s *scriptedInvoker) categoryCalls(category string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == category {
			n++
		}
	}
	return n
}

type recordingTracker struct {
	mu      sync.Mutex
	tracked [][2]string
}

func (r *recordingTracker) Track(jobID, recordID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, [2]string{jobID, recordID})
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestOrchestrator(repo *memInteractionRepo, personas *memPersonaRepo, inv *scriptedInvoker, tracker *recordingTracker) *Orchestrator {
	return &Orchestrator{
		Interactions: repo,
		Personas:     personas,
		Context:      &persona.Builder{Personas: personas, Stories: memStoryRepo{}, Logger: testLogger()},
		Gateway:      inv,
		Poller:       tracker,
		Logger:       testLogger(),
	}
}

func processingInteraction(id, userID, input string) *models.Interaction {
	return &models.Interaction{
		ID:        id,
		UserID:    userID,
		InputText: input,
		Status:    models.InteractionProcessing,
	}
}

func TestRunTextOnlyWhenPersonaLacksMediaIdentities(t *testing.T) {
	repo := newMemInteractionRepo(processingInteraction("i1", "u1", "how was your day?"))
	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava", CommunicationStyle: models.StyleWarm},
	}}
	inv := &scriptedInvoker{textResult: &gateway.Result{Text: "Message: It was lovely."}}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, personas, inv, tracker).Run(context.Background(), "i1")

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, rec.Status)
	require.NotNil(t, rec.ResponseText)
	assert.Equal(t, "It was lovely.", *rec.ResponseText)
	assert.Nil(t, rec.MediaURL)
	assert.Nil(t, rec.MediaJobID)
	assert.Zero(t, inv.categoryCalls(models.CategoryAvatar))
	assert.Empty(t, tracker.tracked)
}

func TestRunFallbackReplyOnTextFailure(t *testing.T) {
	repo := newMemInteractionRepo(processingInteraction("i1", "u1", "hello"))
	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava", CommunicationStyle: models.StyleFormal},
	}}
	inv := &scriptedInvoker{textErr: utils.E(utils.CodeUnavailable, "test", "provider down", nil)}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, personas, inv, tracker).Run(context.Background(), "i1")

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, rec.Status)
	require.NotNil(t, rec.ResponseText)
	assert.NotEmpty(t, *rec.ResponseText)
	assert.Nil(t, rec.FailureReason)
}

func TestRunClaimsJobAndHandsOffToPoller(t *testing.T) {
	repo := newMemInteractionRepo(processingInteraction("i1", "u1", "tell me a story"))
	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava", AvatarID: "https://img.example/a.png", VoiceID: "v-1"},
	}}
	inv := &scriptedInvoker{
		textResult:   &gateway.Result{Text: "Message: Once upon a time."},
		avatarResult: &gateway.Result{JobID: "job-7", Status: "processing"},
	}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, personas, inv, tracker).Run(context.Background(), "i1")

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	// The poller owns the terminal transition once a job is tracked.
	assert.Equal(t, models.InteractionProcessing, rec.Status)
	require.NotNil(t, rec.MediaJobID)
	assert.Equal(t, "job-7", *rec.MediaJobID)
	require.Len(t, tracker.tracked, 1)
	assert.Equal(t, [2]string{"job-7", "i1"}, tracker.tracked[0])
}

func TestRunCompletesTextOnlyWhenAvatarJobFails(t *testing.T) {
	repo := newMemInteractionRepo(processingInteraction("i1", "u1", "hi"))
	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava", AvatarID: "https://img.example/a.png", VoiceID: "v-1"},
	}}
	inv := &scriptedInvoker{
		textResult: &gateway.Result{Text: "Message: Hello!"},
		avatarErr:  utils.E(utils.CodeRenderJobFailed, "test", "rejected", nil),
	}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, personas, inv, tracker).Run(context.Background(), "i1")

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, rec.Status)
	require.NotNil(t, rec.ResponseText)
	assert.Equal(t, "Hello!", *rec.ResponseText)
	assert.Nil(t, rec.MediaJobID)
	assert.Empty(t, tracker.tracked)
}

func TestRunSkipsRecordWithCommittedJob(t *testing.T) {
	// A second run must observe the committed job handle and back off before
	// touching the persisted reply or creating another external job.
	existing := "job-old"
	firstReply := "first reply"
	rec := processingInteraction("i1", "u1", "hi")
	rec.MediaJobID = &existing
	rec.ResponseText = &firstReply
	repo := newMemInteractionRepo(rec)
	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava", AvatarID: "https://img.example/a.png", VoiceID: "v-1"},
	}}
	inv := &scriptedInvoker{
		textResult:   &gateway.Result{Text: "Message: regenerated reply"},
		avatarResult: &gateway.Result{JobID: "job-new", Status: "processing"},
	}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, personas, inv, tracker).Run(context.Background(), "i1")

	got, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionProcessing, got.Status)
	assert.Equal(t, "job-old", *got.MediaJobID)
	require.NotNil(t, got.ResponseText)
	assert.Equal(t, "first reply", *got.ResponseText)
	assert.Empty(t, inv.calls)
	assert.Empty(t, tracker.tracked)
}

func TestRunIgnoresTerminalRecord(t *testing.T) {
	rec := processingInteraction("i1", "u1", "hi")
	rec.Status = models.InteractionCompleted
	repo := newMemInteractionRepo(rec)
	personas := &memPersonaRepo{personas: map[string]*models.Persona{}}
	inv := &scriptedInvoker{}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, personas, inv, tracker).Run(context.Background(), "i1")

	assert.Empty(t, inv.calls)
	assert.Empty(t, tracker.tracked)
}

type stubSTT struct {
	text string
	err  error
}

func (s stubSTT) Transcribe(_ context.Context, _ []byte, _ string) (string, float64, error) {
	return s.text, 0.9, s.err
}

func (s stubSTT) Close() error { return nil }

func TestRunTranscribesRecordedPrompt(t *testing.T) {
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write([]byte("opus-bytes"))
	}))
	defer audioSrv.Close()

	rec := processingInteraction("i1", "u1", "")
	rec.InputRef = audioSrv.URL
	repo := newMemInteractionRepo(rec)

	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava"},
	}}
	inv := &scriptedInvoker{textResult: &gateway.Result{Text: "Message: I remember that too."}}
	tracker := &recordingTracker{}

	o := newTestOrchestrator(repo, personas, inv, tracker)
	o.STT = stubSTT{text: "remember the lake house"}
	o.Run(context.Background(), "i1")

	got, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, got.Status)
	require.Len(t, inv.prompts, 1)
	assert.Contains(t, inv.prompts[0], "remember the lake house")
}

func TestRunTranscriptionFailureIsNonFatal(t *testing.T) {
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("opus-bytes"))
	}))
	defer audioSrv.Close()

	rec := processingInteraction("i1", "u1", "")
	rec.InputRef = audioSrv.URL
	repo := newMemInteractionRepo(rec)

	personas := &memPersonaRepo{personas: map[string]*models.Persona{
		"u1": {UserID: "u1", Name: "Ava"},
	}}
	inv := &scriptedInvoker{textResult: &gateway.Result{Text: "Message: Tell me again?"}}
	tracker := &recordingTracker{}

	o := newTestOrchestrator(repo, personas, inv, tracker)
	o.STT = stubSTT{err: utils.E(utils.CodeUnavailable, "test", "speech api down", nil)}
	o.Run(context.Background(), "i1")

	got, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	// The pipeline still completes with a reply conditioned on a placeholder.
	assert.Equal(t, models.InteractionCompleted, got.Status)
	require.Len(t, inv.prompts, 1)
	assert.Contains(t, inv.prompts[0], "could not be transcribed")
}

func TestRunMissingRecordIsNoOp(t *testing.T) {
	repo := newMemInteractionRepo()
	inv := &scriptedInvoker{}
	tracker := &recordingTracker{}

	newTestOrchestrator(repo, &memPersonaRepo{personas: map[string]*models.Persona{}}, inv, tracker).
		Run(context.Background(), "ghost")

	assert.Empty(t, inv.calls)
	assert.Empty(t, tracker.tracked)
}
