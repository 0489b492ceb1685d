package entities

import (
	"time"

	"veridoc.mx/application/utils"
)

type BiometricType string

const (
	BiometricTypeFace        BiometricType = "face"
	BiometricTypeFingerprint BiometricType = "fingerprint"
)

// VerificationStats is the rolling outcome history kept on a record. It is
// mutated on every verify attempt regardless of result.
type VerificationStats struct {
	SuccessCount       int             `bson:"successCount" json:"successCount"`
	FailureCount       int             `bson:"failureCount" json:"failureCount"`
	LastScores         []float64       `bson:"lastScores" json:"lastScores"`
	LastFailureDetails []FailureDetail `bson:"lastFailureDetails" json:"lastFailureDetails"`
}

type FailureDetail struct {
	Score     float64   `bson:"score" json:"score"`
	Reasons   []string  `bson:"reasons" json:"reasons"`
	IPAddress string    `bson:"ipAddress" json:"ipAddress"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SecurityFlags carry advisory state computed by the verification core.
// Enforcing TemporaryLock is the caller's responsibility; the core only
// computes the flag and its expiry.
type SecurityFlags struct {
	TemporaryLock           bool       `bson:"temporaryLock" json:"temporaryLock"`
	LockUntil               *time.Time `bson:"lockUntil" json:"lockUntil"`
	PossibleSpoofingAttempt bool       `bson:"possibleSpoofingAttempt" json:"possibleSpoofingAttempt"`
	AnomalyType             *string    `bson:"anomalyType" json:"anomalyType"`
}

// A user's registered biometric descriptor. The descriptor itself is stored
// encrypted; this core never persists plaintext descriptor data.
type BiometricRecord struct {
	UserID               string            `bson:"userID" json:"userID"`
	Type                 BiometricType     `bson:"type" json:"type"`
	Ciphertext           string            `bson:"ciphertext" json:"-"`
	IV                   string            `bson:"iv" json:"-"`
	AuthTag              string            `bson:"authTag" json:"-"`
	Active               bool              `bson:"active" json:"active"`
	QualityScore         float64           `bson:"qualityScore" json:"qualityScore"`
	CustomMatchThreshold *float64          `bson:"customMatchThreshold" json:"customMatchThreshold,omitempty"`
	Metadata             map[string]any    `bson:"metadata" json:"metadata"`
	Stats                VerificationStats `bson:"stats" json:"stats"`
	SecurityFlags        SecurityFlags     `bson:"securityFlags" json:"securityFlags"`
	LastVerifiedAt       *time.Time        `bson:"lastVerifiedAt" json:"lastVerifiedAt"`
	LastSuccessIP        *string           `bson:"lastSuccessIP" json:"-"`
	LastSuccessUserAgent *string           `bson:"lastSuccessUserAgent" json:"-"`

	// Version guards concurrent read-modify-write of stats and flags.
	Version int64 `bson:"version" json:"-"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (model BiometricRecord) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		model.ID = utils.GenerateULIDString()
	}
	if model.Metadata == nil {
		model.Metadata = map[string]any{}
	}
	model.UpdatedAt = now
	return &model
}

// IsLocked reports whether the advisory lock is still in force.
func (model *BiometricRecord) IsLocked(now time.Time) bool {
	if !model.SecurityFlags.TemporaryLock || model.SecurityFlags.LockUntil == nil {
		return false
	}
	return now.Before(*model.SecurityFlags.LockUntil)
}
