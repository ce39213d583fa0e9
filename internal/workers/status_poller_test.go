package workers

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/yoopersona/internal/gateway"
	"github.com/yoockh/yoopersona/internal/logger"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/utils"
)

type pollTestRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Interaction
}

func newPollTestRepo(rows ...*models.Interaction) *pollTestRepo {
	m := &pollTestRepo{rows: map[string]*models.Interaction{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *pollTestRepo) Insert(_ context.Context, row *models.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID] = row
	return nil
}

func (m *pollTestRepo) GetByID(_ context.Context, id string) (*models.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *pollTestRepo) ListByUser(_ context.Context, _ string, _ int) ([]models.Interaction, error) {
	return nil, nil
}

func (m *pollTestRepo) MarkProcessing(_ context.Context, _ string) error { return nil }

func (m *pollTestRepo) SetResponseText(_ context.Context, _, _ string, _ []byte) error { return nil }

func (m *pollTestRepo) ClaimMediaJob(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *pollTestRepo) Complete(_ context.Context, id string, mediaURL *string) (bool, error) {
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

func (m *pollTestRepo) Fail(_ context.Context, id, reason string) (bool, error) {
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

// sequenceInvoker replays a scripted sequence of status results; once the
// script runs out it keeps returning the last entry. A nil entry stands for
// a transport error on that attempt.
type sequenceInvoker struct {
	mu      sync.Mutex
	results []*gateway.Result
	calls   int
}

func (s *sequenceInvoker) Invoke(_ context.Context, category string, req gateway.Request) (*gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category != models.CategoryAvatar || req.Action != gateway.ActionStatus {
		return nil, utils.E(utils.CodeInvalidArgument, "sequenceInvoker", "unexpected call", nil)
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	if s.results[idx] == nil {
		return nil, utils.E(utils.CodeUnavailable, "sequenceInvoker", "connection refused", nil)
	}
	return s.results[idx], nil
}

func (s *sequenceInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []*models.InteractionEvent
}

func (r *recordingSink) Emit(_ context.Context, ev *models.InteractionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func pollerFor(repo *pollTestRepo, inv *sequenceInvoker) *StatusPoller {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return &StatusPoller{Interactions: repo, Gateway: inv, Logger: l}
}

func processingRow(id string) *models.Interaction {
	job := "job-" + id
	return &models.Interaction{
		ID:         id,
		UserID:     "u1",
		Status:     models.InteractionProcessing,
		MediaJobID: &job,
	}
}

// runSync drives the poll chain without timers so the attempt accounting is
// deterministic.
func runSync(p *StatusPoller, jobID, recordID string, maxAttempts int) {
	log := logger.Component(p.Logger, "status_poller")
	p.run(context.Background(), jobID, recordID, 0, 0, maxAttempts, log)
}

func TestPollerCompletesWithMediaURL(t *testing.T) {
	repo := newPollTestRepo(processingRow("i1"))

	results := make([]*gateway.Result, 0, 60)
	for i := 0; i < 59; i++ {
		results = append(results, &gateway.Result{JobID: "job-i1", Status: "processing"})
	}
	results = append(results, &gateway.Result{
		JobID:    "job-i1",
		Status:   "completed",
		MediaURL: "https://cdn.example/final.mp4",
	})
	inv := &sequenceInvoker{results: results}

	runSync(pollerFor(repo, inv), "job-i1", "i1", 60)

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, rec.Status)
	require.NotNil(t, rec.MediaURL)
	assert.Equal(t, "https://cdn.example/final.mp4", *rec.MediaURL)
	assert.Equal(t, 60, inv.callCount())
}

func TestPollerTimesOutAfterBudget(t *testing.T) {
	repo := newPollTestRepo(processingRow("i1"))
	inv := &sequenceInvoker{results: []*gateway.Result{{JobID: "job-i1", Status: "pending"}}}
	sink := &recordingSink{}

	p := pollerFor(repo, inv)
	p.Events = sink
	runSync(p, "job-i1", "i1", 60)

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionFailed, rec.Status)
	require.NotNil(t, rec.FailureReason)
	assert.Equal(t, models.FailureTimeout, *rec.FailureReason)
	assert.Equal(t, 60, inv.callCount())

	require.Len(t, sink.events, 1)
	assert.Equal(t, string(utils.CodePollTimeout), sink.events[0].Detail)
	assert.Equal(t, 60, sink.events[0].Attempt)
}

func TestPollerTransportErrorsConsumeAttempts(t *testing.T) {
	repo := newPollTestRepo(processingRow("i1"))
	inv := &sequenceInvoker{results: []*gateway.Result{
		nil, // transport error
		{JobID: "job-i1", Status: "processing"},
		nil, // transport error
		{JobID: "job-i1", Status: "completed", MediaURL: "https://cdn.example/x.mp4"},
	}}

	runSync(pollerFor(repo, inv), "job-i1", "i1", 60)

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, rec.Status)
	// Each failed attempt is consumed, not retried outside the budget.
	assert.Equal(t, 4, inv.callCount())
}

func TestPollerTransportErrorsNeverFailEarly(t *testing.T) {
	repo := newPollTestRepo(processingRow("i1"))
	inv := &sequenceInvoker{results: []*gateway.Result{nil}}

	runSync(pollerFor(repo, inv), "job-i1", "i1", 5)

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	// Pure transport failure exhausts the budget as a timeout rather than a
	// provider-reported failure.
	assert.Equal(t, models.InteractionFailed, rec.Status)
	require.NotNil(t, rec.FailureReason)
	assert.Equal(t, models.FailureTimeout, *rec.FailureReason)
	assert.Equal(t, 5, inv.callCount())
}

func TestPollerFailsOnProviderReportedFailure(t *testing.T) {
	repo := newPollTestRepo(processingRow("i1"))
	inv := &sequenceInvoker{results: []*gateway.Result{
		{JobID: "job-i1", Status: "processing"},
		{JobID: "job-i1", Status: "failed"},
	}}

	runSync(pollerFor(repo, inv), "job-i1", "i1", 60)

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionFailed, rec.Status)
	require.NotNil(t, rec.FailureReason)
	assert.Equal(t, models.FailureProvider, *rec.FailureReason)
	assert.Equal(t, 2, inv.callCount())
}

func TestPollerIgnoresCompletedWithoutURL(t *testing.T) {
	repo := newPollTestRepo(processingRow("i1"))
	inv := &sequenceInvoker{results: []*gateway.Result{
		{JobID: "job-i1", Status: "completed"}, // no media url yet
		{JobID: "job-i1", Status: "completed", MediaURL: "https://cdn.example/x.mp4"},
	}}

	runSync(pollerFor(repo, inv), "job-i1", "i1", 60)

	rec, err := repo.GetByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, models.InteractionCompleted, rec.Status)
	require.NotNil(t, rec.MediaURL)
	assert.Equal(t, "https://cdn.example/x.mp4", *rec.MediaURL)
	assert.Equal(t, 2, inv.callCount())
}

func TestPollerStopsOnTerminalRecord(t *testing.T) {
	row := processingRow("i1")
	row.Status = models.InteractionFailed
	repo := newPollTestRepo(row)
	inv := &sequenceInvoker{results: []*gateway.Result{{Status: "processing"}}}

	runSync(pollerFor(repo, inv), "job-i1", "i1", 60)

	assert.Zero(t, inv.callCount())
}

func TestPollerStopsWhenRecordGone(t *testing.T) {
	repo := newPollTestRepo()
	inv := &sequenceInvoker{results: []*gateway.Result{{Status: "processing"}}}

	runSync(pollerFor(repo, inv), "job-ghost", "ghost", 60)

	assert.Zero(t, inv.callCount())
}
