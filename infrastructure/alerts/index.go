package alerts

import (
	"encoding/json"
	"time"

	"veridoc.mx/infrastructure/logger"
	messagequeue "veridoc.mx/infrastructure/message_queue"
	queue_tasks "veridoc.mx/infrastructure/message_queue/tasks"
	mq_types "veridoc.mx/infrastructure/message_queue/types"
)

// QueueAlertSink delivers security alerts through the task queue so the
// verification path never waits on an email provider.
type QueueAlertSink struct{}

func (QueueAlertSink) SendLockoutAlert(userID string, lockUntil time.Time) {
	payload, err := json.Marshal(queue_tasks.SecurityAlertPayload{
		UserID:    userID,
		LockUntil: lockUntil,
	})
	if err != nil {
		logger.Error("failed to marshal security alert payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}
	messagequeue.TaskQueue.Enqueue(mq_types.QueueTask{
		Name:     queue_tasks.HandleSecurityAlertTaskName,
		Payload:  payload,
		Priority: mq_types.High,
	})
}
