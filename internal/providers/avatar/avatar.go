package avatar

import "context"

// Normalized render-job states. Providers map their own vocabulary onto
// these; anything unrecognized becomes StateUnknown.
const (
	StatePending    = "pending"
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
	StateUnknown    = "unknown"
)

type CreateJobRequest struct {
	AvatarID string
	VoiceID  string
	Script   string
}

type JobStatus struct {
	State    string
	MediaURL string // set only when State == StateCompleted
}

type Provider interface {
	// CreateJob submits a video-rendering job and returns its handle.
	// Must not block for completion.
	CreateJob(ctx context.Context, req CreateJobRequest) (jobID string, err error)

	// JobStatus queries a previously created job.
	JobStatus(ctx context.Context, jobID string) (*JobStatus, error)
}
