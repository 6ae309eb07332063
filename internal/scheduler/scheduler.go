// Package scheduler publishes queued posts when their time arrives. A cron
// sweep catches posts whose timers were lost to a restart, so a post missed
// while the process was down publishes on the next sweep instead of silently
// expiring.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/session"
)

// DefaultSweepSpec runs the due-post sweep every minute.
const DefaultSweepSpec = "* * * * *"

// Publisher creates the actual post. Implemented by the voyager client.
type Publisher interface {
	CreateShare(ctx context.Context, sess *session.Session, content string) (string, error)
}

// Queue is the scheduled-post persistence the scheduler drives.
type Queue interface {
	DueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error)
	SetScheduledStatus(ctx context.Context, id string, status models.ScheduledStatus, lastError string) error
}

// Scheduler owns the sweep loop and hands due posts to the publisher.
type Scheduler struct {
	queue     Queue
	publisher Publisher
	session   func() *session.Session
	logger    logger.Interface

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	started bool
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(log logger.Interface) Option {
	return func(s *Scheduler) { s.logger = log }
}

// New builds a scheduler. sessionFn supplies the current authenticated
// session at publish time; sessions rotate, so it is not captured once.
func New(queue Queue, publisher Publisher, sessionFn func() *session.Session, opts ...Option) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s := &Scheduler{
		queue:     queue,
		publisher: publisher,
		session:   sessionFn,
		logger:    logger.NewNoOp(),
		cron:      cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the sweep loop and immediately runs one sweep so posts that
// came due while the process was down publish without waiting a full cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	entryID, err := s.cron.AddFunc(DefaultSweepSpec, func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.cron.Start()
	s.started = true

	go s.Sweep(ctx)
	return nil
}

// Stop halts the sweep loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.started = false
}

// Sweep publishes every post whose scheduled time has passed. Each post
// fails or succeeds independently.
func (s *Scheduler) Sweep(ctx context.Context) {
	due, err := s.queue.DueScheduled(ctx, time.Now())
	if err != nil {
		s.logger.Error("listing due posts", "error", err)
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		s.publish(ctx, &due[i])
	}
}

// PublishNow publishes a single scheduled post immediately, regardless of
// its scheduled time.
func (s *Scheduler) PublishNow(ctx context.Context, post *models.ScheduledPost) error {
	s.publish(ctx, post)
	if post.Status == models.StatusFailed {
		return errPublishFailed{reason: post.LastError}
	}
	return nil
}

type errPublishFailed struct{ reason string }

func (e errPublishFailed) Error() string { return "publish failed: " + e.reason }

func (s *Scheduler) publish(ctx context.Context, post *models.ScheduledPost) {
	if err := s.queue.SetScheduledStatus(ctx, post.ID, models.StatusPublishing, ""); err != nil {
		s.logger.Error("marking post publishing", "id", post.ID, "error", err)
		return
	}
	post.Status = models.StatusPublishing

	var sess *session.Session
	if s.session != nil {
		sess = s.session()
	}

	urn, err := s.publisher.CreateShare(ctx, sess, post.Content)
	if err != nil {
		s.logger.Error("publishing scheduled post", "id", post.ID, "error", err)
		post.Status = models.StatusFailed
		post.LastError = err.Error()
		if stErr := s.queue.SetScheduledStatus(ctx, post.ID, models.StatusFailed, err.Error()); stErr != nil {
			s.logger.Error("marking post failed", "id", post.ID, "error", stErr)
		}
		return
	}

	post.Status = models.StatusPublished
	post.LastError = ""
	if err := s.queue.SetScheduledStatus(ctx, post.ID, models.StatusPublished, ""); err != nil {
		s.logger.Error("marking post published", "id", post.ID, "error", err)
		return
	}
	s.logger.Info("scheduled post published", "id", post.ID, "urn", urn)
}
