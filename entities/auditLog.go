package entities

import (
	"time"

	"veridoc.mx/application/utils"
)

// BiometricAuditLog records every register/verify/remove attempt, pass or
// fail. Entries are append-only and never deleted.
type BiometricAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	Action    string         `bson:"action" json:"action"`
	UserID    string         `bson:"userID" json:"userID"`
	TargetID  *string        `bson:"targetID" json:"targetID"`
	Details   map[string]any `bson:"details" json:"details"`
	IPAddress *string        `bson:"ipAddress" json:"ipAddress"`
	UserAgent *string        `bson:"userAgent" json:"userAgent"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}

func (model BiometricAuditLog) ParseModel() any {
	if model.ID == "" {
		model.ID = utils.GenerateULIDString()
	}
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	if model.Timestamp.IsZero() {
		model.Timestamp = now
	}
	model.UpdatedAt = now
	return &model
}
