package queue_tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"veridoc.mx/application/repository"
	"veridoc.mx/infrastructure/logger"
	mq_types "veridoc.mx/infrastructure/message_queue/types"
	"veridoc.mx/infrastructure/messaging/emails"
)

var HandleSecurityAlertTaskName mq_types.Queues = "send_security_alert"

type SecurityAlertPayload struct {
	UserID    string
	LockUntil time.Time
}

// HandleSecurityAlertTask emails a user whose biometric record was locked
// after repeated verification failures.
func HandleSecurityAlertTask(ctx context.Context, t *asynq.Task) error {
	var payload SecurityAlertPayload
	err := json.Unmarshal(t.Payload(), &payload)
	if err != nil {
		logger.Error("an error occured while unmarshalling security alert queue payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}

	user, err := repository.UserRepo().FindByID(payload.UserID)
	if err != nil {
		return err
	}
	if user == nil || user.Email == nil {
		logger.Warning("security alert skipped because user has no email", logger.LoggerOptions{
			Key:  "userID",
			Data: payload.UserID,
		})
		return nil
	}

	success := emails.EmailService.SendEmail(*user.Email, "Alerta de seguridad en tu cuenta", "security_alert", map[string]any{
		"FirstName": user.FirstName,
		"LockUntil": payload.LockUntil.Format(time.RFC1123),
	})
	if !success {
		return fmt.Errorf("failed to send security alert email to user %s", payload.UserID)
	}
	return nil
}
