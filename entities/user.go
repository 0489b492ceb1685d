package entities

import (
	"time"

	"veridoc.mx/application/utils"
)

// This represents a user signed up to veridoc
type User struct {
	FirstName     *string `bson:"firstName" json:"firstName"`
	LastName      *string `bson:"lastName" json:"lastName"`
	Email         *string `bson:"email" json:"email,omitempty"`
	RFC           *string `bson:"rfc" json:"rfc,omitempty"`
	UserAgent     string  `bson:"userAgent" json:"userAgent"`
	Deactivated   bool    `bson:"deactivated" json:"deactivated"`
	Blocked       bool    `bson:"blocked" json:"-"`
	BlockedReason *string `bson:"blockedReason" json:"blockedReason"`

	ID            string     `bson:"_id" json:"id"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt     *time.Time `bson:"deletedAt" json:"deletedAt"`
	DeletedReason *string    `bson:"deletedReason" json:"deletedReason"`
}

func (model User) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		model.ID = utils.GenerateULIDString()
	}
	model.UpdatedAt = now
	return &model
}
