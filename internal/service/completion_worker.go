package service

import (
	"context"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"errors"
	"time"

	"go.uber.org/zap"
)

type CourseCompletionUpdater interface {
	UpdateCourseCompletionRate(ctx context.Context, courseID string) error
}

// CompletionWorker 消费完成事件并触发重算，失败只记录
type CompletionWorker struct {
	Queue   CompletionConsumer
	Updater CourseCompletionUpdater
	Poll    time.Duration
}

func NewCompletionWorker(queue CompletionConsumer, updater CourseCompletionUpdater, poll time.Duration) *CompletionWorker {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &CompletionWorker{Queue: queue, Updater: updater, Poll: poll}
}

func (w *CompletionWorker) Run(ctx context.Context) {
	logger.Log.Info("completion worker started", zap.Duration("poll", w.Poll))
	for {
		if ctx.Err() != nil {
			logger.Log.Info("completion worker stopped")
			return
		}

		event, err := w.Queue.Receive(ctx, w.Poll)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, util.ErrQueueClosed) {
				logger.Log.Info("completion worker stopped")
				return
			}
			logger.Log.Error("completion queue receive failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.Poll):
			}
			continue
		}
		if event == nil {
			continue
		}

		w.Handle(ctx, *event)
	}
}

func (w *CompletionWorker) Handle(ctx context.Context, event CourseCompletionEvent) error {
	if err := w.Updater.UpdateCourseCompletionRate(ctx, event.CourseID); err != nil {
		cerr := &util.CompletionUpdateError{CourseID: event.CourseID, Err: err}
		monitoring.CompletionEvents.WithLabelValues("update_failed").Inc()
		logger.Log.Error("course completion update failed",
			zap.String("profileId", event.ProfileID),
			zap.Error(cerr),
		)
		return cerr
	}
	monitoring.CompletionEvents.WithLabelValues("updated").Inc()
	return nil
}
