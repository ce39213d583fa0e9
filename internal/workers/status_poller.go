package workers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoopersona/internal/gateway"
	"github.com/yoockh/yoopersona/internal/logger"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/providers/avatar"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
	"github.com/yoockh/yoopersona/internal/services"
	"github.com/yoockh/yoopersona/internal/utils"
)

// StatusPoller tracks external render jobs to a terminal state with a
// bounded, timer-based poll chain per record. Chains live only in-process;
// a restart drops in-flight tracking (single-process deployment assumption).
type StatusPoller struct {
	Interactions pgrepo.InteractionRepo
	Gateway      services.Invoker
	Events       services.EventSink
	Logger       *logrus.Logger

	// InitialDelay lets the external renderer register the job before the
	// first poll. MaxAttempts * Interval is the wall-clock ceiling.
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

// Track starts background tracking of jobID for the given record and
// returns immediately. The chain self-terminates when the record reaches a
// terminal state, disappears, or the attempt budget runs out.
func (p *StatusPoller) Track(jobID, recordID string) {
	initialDelay := p.InitialDelay
	if initialDelay <= 0 {
		initialDelay = 10 * time.Second
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 60
	}

	log := logger.Component(p.Logger, "status_poller").WithFields(logrus.Fields{
		"interaction_id": recordID,
		"job_id":         jobID,
	})

	go p.run(context.Background(), jobID, recordID, initialDelay, interval, maxAttempts, log)
}

func (p *StatusPoller) run(ctx context.Context, jobID, recordID string, initialDelay, interval time.Duration, maxAttempts int, log *logrus.Entry) {
	time.Sleep(initialDelay)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(interval)
		}

		rec, err := p.Interactions.GetByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				// Record deleted mid-poll; stop rather than recreate.
				log.Info("record gone; stopping poll chain")
				return
			}
			log.WithError(err).Warn("record reload failed")
			continue
		}
		if rec.Terminal() {
			return
		}

		res, err := p.Gateway.Invoke(ctx, models.CategoryAvatar, gateway.Request{
			Action: gateway.ActionStatus,
			JobID:  jobID,
		})
		if err != nil {
			// Transient blips consume an attempt but never abandon the
			// job early.
			log.WithError(err).WithField("attempt", attempt).Debug("status poll failed")
			continue
		}

		switch res.Status {
		case avatar.StateCompleted:
			if res.MediaURL == "" {
				log.WithField("attempt", attempt).Warn("completed without media url; continuing")
				continue
			}
			ok, werr := p.Interactions.Complete(ctx, recordID, &res.MediaURL)
			if werr != nil {
				log.WithError(werr).Error("terminal complete write failed")
			} else if ok {
				p.emit(ctx, recordID, models.InteractionCompleted, res.MediaURL, attempt)
				log.WithField("attempt", attempt).Info("render job completed")
			}
			return

		case avatar.StateFailed:
			ok, werr := p.Interactions.Fail(ctx, recordID, models.FailureProvider)
			if werr != nil {
				log.WithError(werr).Error("terminal fail write failed")
			} else if ok {
				p.emit(ctx, recordID, models.InteractionFailed, "provider reported failure", attempt)
				log.WithField("attempt", attempt).Warn("render job failed at provider")
			}
			return
		}
		// pending/processing/unknown: keep polling while budget remains.
	}

	// Budget exhausted without a terminal provider status: a timeout, kept
	// distinct from a provider-reported failure.
	ok, err := p.Interactions.Fail(ctx, recordID, models.FailureTimeout)
	if err != nil {
		log.WithError(err).Error("timeout fail write failed")
		return
	}
	if ok {
		p.emit(ctx, recordID, models.InteractionFailed, string(utils.CodePollTimeout), maxAttempts)
		log.Warn("render job polling timed out")
	}
}

func (p *StatusPoller) emit(ctx context.Context, recordID, status, detail string, attempt int) {
	if p.Events == nil {
		return
	}
	p.Events.Emit(ctx, &models.InteractionEvent{
		InteractionID: recordID,
		Stage:         "poll",
		Status:        status,
		Detail:        detail,
		Attempt:       attempt,
	})
}
