package auditlog

import (
	"context"
	"time"

	"veridoc.mx/application/repository"
	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/logger"
)

// Record writes an audit entry for a biometric action. Fire-and-forget: a
// failed write is logged but never propagates to the caller, so the
// user-facing response is not blocked on the audit trail.
func Record(action string, userID string, targetID *string, details map[string]any, ip *string, userAgent *string) {
	entry := entities.BiometricAuditLog{
		Action:    action,
		UserID:    userID,
		TargetID:  targetID,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := repository.BiometricAuditLogRepo().CreateOne(ctx, entry); err != nil {
			logger.Error("failed to write biometric audit entry", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			}, logger.LoggerOptions{
				Key:  "action",
				Data: action,
			}, logger.LoggerOptions{
				Key:  "userID",
				Data: userID,
			})
		}
	}()
}
