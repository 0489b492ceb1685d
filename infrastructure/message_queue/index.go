package messagequeue

import (
	"veridoc.mx/infrastructure/message_queue/asynq"
	mq_types "veridoc.mx/infrastructure/message_queue/types"
)

var TaskQueue mq_types.TaskQueueBroker = &asynq.AsynqBroker{}

func StartQueue() {
	TaskQueue.Start()
}
