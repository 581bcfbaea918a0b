package workers

import (
	"context"

	"figures/internal/messaging"
	"figures/internal/models"
	"figures/internal/tasks"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

const PopulateConsumerName = "populate_consumer"

// PopulateConsumer runs the populate tasks published on the populate_metrics topic.
type PopulateConsumer struct {
	Subscriber messaging.ISubscriber
	Tasks      tasks.Tasks
	Tracker    *RunTracker
}

func (c *PopulateConsumer) Start(ctx context.Context) {
	messages, err := c.Subscriber.Subscribe(ctx)
	if err != nil {
		zap.L().Error("Failed to subscribe to populate tasks", zap.Error(err))
		return
	}
	zap.L().Info("Populate consumer started")

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Populate consumer shutting down")
			return
		case msg, ok := <-messages:
			if !ok {
				zap.L().Info("Populate task channel closed")
				return
			}
			c.Handle(ctx, msg)
		}
	}
}

// Handle runs one task message. Loaders are idempotent, so messages are acked
// even when the batch failed: failures are already recorded as pipeline errors
// and the worker run.
func (c *PopulateConsumer) Handle(ctx context.Context, msg *message.Message) {
	task, err := messaging.DecodePopulateTask(msg)
	if err != nil {
		zap.L().Error("Dropping malformed populate task", zap.String("message_id", msg.UUID), zap.Error(err))
		msg.Ack()
		return
	}

	logger := zap.L().With(
		zap.String("message_id", msg.UUID),
		zap.String("scope", string(task.Scope)),
		zap.Uint("site_id", task.SiteID),
		zap.String("course_id", task.CourseID),
	)
	logger.Info("Running populate task")

	date := task.DateFor
	if date == nil {
		today := models.Today()
		date = &today
	}

	summary, err := c.Tracker.Track(ctx, PopulateConsumerName, date, func(ctx context.Context) (tasks.Summary, error) {
		return c.Tasks.Run(ctx, task)
	})
	if err != nil {
		logger.Error("Populate task failed",
			zap.Int("processed", summary.Processed),
			zap.Int("failed", summary.Failed),
			zap.Error(err))
	} else {
		logger.Info("Populate task completed", zap.Int("processed", summary.Processed))
	}
	msg.Ack()
}
