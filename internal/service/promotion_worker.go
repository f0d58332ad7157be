package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
	"github.com/noah-isme/academic-registrar-api/pkg/jobs"
)

// PromotionTopic is the queue topic carrying freed-seat tasks keyed by section.
const PromotionTopic = "enrollment.promotions"

// maxPromotionsPerTask bounds how many seats one task fills before yielding.
const maxPromotionsPerTask = 500

type waitlistPromoter interface {
	PromoteNextFromWaitlist(ctx context.Context, sectionID string) (*models.SectionEnrollment, error)
}

type promotableLister interface {
	ListPromotable(ctx context.Context) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// PromotionWorker drains waitlists when seats free up. Tasks are idempotent:
// a section with no free seat or an empty waitlist is a no-op.
type PromotionWorker struct {
	promoter waitlistPromoter
	sections promotableLister
	queue    jobEnqueuer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewPromotionWorker constructs the worker. Attach must be called before
// EnqueuePromotion.
func NewPromotionWorker(promoter waitlistPromoter, sections promotableLister, metrics *MetricsService, logger *zap.Logger) *PromotionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionWorker{promoter: promoter, sections: sections, metrics: metrics, logger: logger}
}

// Attach binds the queue that Handle is registered on.
func (w *PromotionWorker) Attach(queue jobEnqueuer) {
	w.queue = queue
}

// EnqueuePromotion schedules a promotion task for sectionID.
func (w *PromotionWorker) EnqueuePromotion(ctx context.Context, sectionID string) error {
	if w.queue == nil {
		return fmt.Errorf("promotion queue not attached: %w", jobs.ErrQueueStopped)
	}
	return w.queue.Enqueue(ctx, jobs.Job{Key: sectionID, Payload: sectionID})
}

// Handle is the queue handler for PromotionTopic.
func (w *PromotionWorker) Handle(ctx context.Context, job jobs.Job) error {
	sectionID := job.Key
	if sectionID == "" {
		if s, ok := job.Payload.(string); ok {
			sectionID = s
		}
	}
	if sectionID == "" {
		w.logger.Warn("promotion job without section", zap.String("job_id", job.ID))
		return nil
	}
	_, err := w.Drain(ctx, sectionID)
	return err
}

// Drain promotes waitlisted students of sectionID until no seat is free or the
// waitlist is empty. Each promotion is its own transaction.
func (w *PromotionWorker) Drain(ctx context.Context, sectionID string) (int, error) {
	promoted := 0
	for promoted < maxPromotionsPerTask {
		enrollment, err := w.promoter.PromoteNextFromWaitlist(ctx, sectionID)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				w.logger.Info("promotion skipped, section gone", zap.String("section_id", sectionID))
				w.metrics.RecordPromotion(PromotionOutcomeNoop)
				return promoted, nil
			}
			w.metrics.RecordPromotion(PromotionOutcomeFailed)
			return promoted, err
		}
		if enrollment == nil {
			break
		}
		promoted++
		w.metrics.RecordPromotion(PromotionOutcomePromoted)
	}
	if promoted == 0 {
		w.metrics.RecordPromotion(PromotionOutcomeNoop)
	}
	return promoted, nil
}

// Recover enqueues a task for every section that has both a free seat and a
// waiting student, covering tasks lost across a restart.
func (w *PromotionWorker) Recover(ctx context.Context) (int, error) {
	ids, err := w.sections.ListPromotable(ctx)
	if err != nil {
		return 0, fmt.Errorf("list promotable sections: %w", err)
	}
	for _, id := range ids {
		if err := w.EnqueuePromotion(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(ids) > 0 {
		w.logger.Sugar().Infow("recovered pending promotions", "sections", len(ids))
	}
	return len(ids), nil
}

// OnExhausted logs a task that failed on every retry. The section is picked
// up again by the next Recover.
func (w *PromotionWorker) OnExhausted(job jobs.Job, err error) {
	w.logger.Error("promotion abandoned", zap.String("section_id", job.Key), zap.Int("attempts", job.Attempt), zap.Error(err))
}
