package messaging

import (
	"encoding/json"
	"fmt"

	"figures/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const contentTypeJSON = "application/json"

// NewPopulateMessage wraps a populate task in a watermill message.
func NewPopulateMessage(task models.PopulateTask) (*message.Message, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to encode populate task: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("content_type", contentTypeJSON)
	msg.Metadata.Set("scope", string(task.Scope))
	return msg, nil
}

func DecodePopulateTask(msg *message.Message) (models.PopulateTask, error) {
	var task models.PopulateTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		return models.PopulateTask{}, fmt.Errorf("failed to decode populate task %s: %w", msg.UUID, err)
	}
	return task, nil
}
