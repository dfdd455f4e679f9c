package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/custody"
	"github.com/linesmerrill/custody-ledger-api/models"
)

const (
	jobTimeout       = 5 * time.Minute
	integrityLockTTL = 10 * time.Minute
	integrityLock    = "integrity_sweep"
)

// IntegrityChecker finds records that lost their audit trail
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context) ([]string, error)
}

// Locker makes a job run on one instance at a time
type Locker interface {
	TryLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name, owner string) error
}

// Scheduler runs the periodic background jobs: a RESYNC broadcast to the
// local viewers and the audit trail integrity sweep.
type Scheduler struct {
	cron       *cron.Cron
	checker    IntegrityChecker
	local      custody.Notifier
	locker     Locker
	instanceID string
	log        *zap.SugaredLogger
}

// NewScheduler creates a scheduler. locker may be nil on a single instance.
func NewScheduler(checker IntegrityChecker, local custody.Notifier, locker Locker) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		host, _ := os.Hostname()
		instanceID = fmt.Sprintf("%s-%d", host, time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		checker:    checker,
		local:      local,
		locker:     locker,
		instanceID: instanceID,
		log:        zap.S(),
	}
}

// Start registers the jobs on their cron specs and starts the scheduler.
// An empty spec disables that job.
func (s *Scheduler) Start(resyncSpec, integritySpec string) error {
	if resyncSpec != "" {
		if _, err := s.cron.AddFunc(resyncSpec, s.Resync); err != nil {
			return fmt.Errorf("register resync job: %w", err)
		}
	}
	if integritySpec != "" {
		if _, err := s.cron.AddFunc(integritySpec, s.SweepIntegrity); err != nil {
			return fmt.Errorf("register integrity job: %w", err)
		}
	}

	s.cron.Start()
	s.log.Infow("scheduler started",
		"resync", resyncSpec,
		"integrity", integritySpec,
		"instance", s.instanceID,
	)
	return nil
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// Resync tells every viewer connected to this instance to refetch, which
// recovers clients that missed a dropped notification.
func (s *Scheduler) Resync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.local.Publish(ctx, models.ChangeEvent{Type: models.EventResync}); err != nil {
		s.log.Warnw("resync broadcast not delivered", "error", err)
	}
}

// SweepIntegrity logs active records that have no audit entries
func (s *Scheduler) SweepIntegrity() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, integrityLock, s.instanceID, integrityLockTTL)
		if err != nil {
			s.log.Errorw("failed to acquire lock for integrity sweep", "error", err)
			return
		}
		if !acquired {
			s.log.Debug("integrity sweep already running on another instance, skipping")
			return
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), integrityLock, s.instanceID); err != nil {
				s.log.Warnw("failed to release integrity sweep lock", "error", err)
			}
		}()
	}

	orphans, err := s.checker.VerifyIntegrity(ctx)
	if err != nil {
		s.log.Errorw("integrity sweep failed", "error", err)
		return
	}
	if len(orphans) > 0 {
		s.log.Errorw("records without audit entries",
			"count", len(orphans),
			"recordIds", orphans,
		)
		return
	}
	s.log.Debug("integrity sweep found no orphaned records")
}
