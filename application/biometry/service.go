package biometry

import (
	"context"
	"fmt"
	"time"

	"veridoc.mx/application/constants"
	"veridoc.mx/application/repository"
	"veridoc.mx/application/utils"
	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/auditlog"
	"veridoc.mx/infrastructure/cryptography"
	"veridoc.mx/infrastructure/database/repository/cache"
	"veridoc.mx/infrastructure/logger"
)

const VerificationMethod = "multi-factor-biometric"

// Narrow storage and side-effect surfaces. Production wiring uses the mongo
// repositories and the message queue; tests substitute in-memory fakes.

type UserStore interface {
	FindByID(id string) (*entities.User, error)
}

type RecordStore interface {
	FindActive(userID string, biometricType entities.BiometricType) (*entities.BiometricRecord, error)
	FindByID(id string) (*entities.BiometricRecord, error)
	Create(ctx context.Context, record entities.BiometricRecord) (*entities.BiometricRecord, error)
	DeactivateActive(userID string, biometricType entities.BiometricType, reason string) (int64, error)
	DeactivateAll(userID string, reason string) (int64, error)
	UpdateWithVersion(id string, version int64, payload map[string]any) (bool, error)
}

type Crypto interface {
	Encrypt(payload []byte) (*cryptography.EncryptedPayload, error)
	Decrypt(payload cryptography.EncryptedPayload) ([]byte, error)
}

type AuditSink interface {
	Record(action string, userID string, targetID *string, details map[string]any, ip *string, userAgent *string)
}

type AlertSink interface {
	SendLockoutAlert(userID string, lockUntil time.Time)
}

// ChallengeStore resolves issued challenge nonces. Consume removes the nonce
// so a proof can answer an issued challenge at most once.
type ChallengeStore interface {
	Consume(nonce string) (ChallengeType, bool)
}

// Service is the biometric verification core. All decision logic lives here;
// controllers only translate transport concerns.
type Service struct {
	Users      UserStore
	Records    RecordStore
	Crypto     Crypto
	Audit      AuditSink
	Alerts     AlertSink
	Challenges ChallengeStore
	Scorer     DescriptorScorer
	Texture    TextureAnalyzer
	Motion     MotionAnalyzer
	Liveness   *LivenessOrchestrator

	now func() time.Time
}

// BiometricService is the process-wide instance, wired during startup.
var BiometricService *Service

func NewService(users UserStore, records RecordStore, crypto Crypto, audit AuditSink, alerts AlertSink) *Service {
	return &Service{
		Users:    users,
		Records:  records,
		Crypto:   crypto,
		Audit:    audit,
		Alerts:   alerts,
		Scorer:   &CosineScorer{},
		Texture:  &HeuristicTextureAnalyzer{},
		Motion:   &NaturalMotionAnalyzer{},
		Liveness: NewLivenessOrchestrator(),
		now:      time.Now,
	}
}

// runLiveness applies the challenge-nonce binding before the orchestrator. A
// proof carrying a nonce must answer the challenge that nonce was issued for.
func (s *Service) runLiveness(proof *LivenessProof) *LivenessResult {
	if result := s.checkChallengeBinding(proof); result != nil {
		return result
	}
	return s.Liveness.Check(proof)
}

func (s *Service) checkChallengeBinding(proof *LivenessProof) *LivenessResult {
	if proof == nil || proof.Nonce == "" || s.Challenges == nil {
		return nil
	}
	issued, found := s.Challenges.Consume(proof.Nonce)
	if !found {
		return &LivenessResult{
			Verified:   false,
			Method:     "challenge-binding",
			Reason:     utils.GetStringPointer("unknown or expired challenge nonce"),
			Confidence: 1,
		}
	}
	if issued != proof.Challenge {
		return &LivenessResult{
			Verified:   false,
			Method:     "challenge-binding",
			Reason:     utils.GetStringPointer(fmt.Sprintf("proof answers %q but the issued challenge was %q", proof.Challenge, issued)),
			Confidence: 1,
		}
	}
	return nil
}

// WithClock pins the time source for tests. The liveness orchestrator shares
// the same clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.Liveness.WithClock(now)
	return s
}

type RegisterInput struct {
	UserID          string
	Type            entities.BiometricType
	Descriptor      string
	Proof           *LivenessProof
	CustomThreshold *float64
	Metadata        map[string]any
	IPAddress       *string
	UserAgent       *string
}

type RegisterOutput struct {
	RecordID     string  `json:"recordID"`
	QualityScore float64 `json:"qualityScore"`
	Replaced     bool    `json:"replaced"`
}

// Register enrolls a descriptor for a user, replacing any active record of the
// same type. Enrollment demands a passed liveness check so a stolen descriptor
// cannot be planted without a live subject.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	user, err := s.Users.FindByID(input.UserID)
	if err != nil {
		return nil, &InternalError{Err: err}
	}
	if user == nil || user.Deactivated {
		return nil, &NotFoundError{Entity: "user"}
	}

	liveness := s.runLiveness(input.Proof)
	if !liveness.Verified {
		s.Audit.Record("biometric.register.rejected", input.UserID, nil, map[string]any{
			"method": liveness.Method,
			"reason": liveness.Reason,
			"score":  liveness.Score,
		}, input.IPAddress, input.UserAgent)
		reason := "liveness verification failed"
		if liveness.Reason != nil {
			reason = *liveness.Reason
		}
		return nil, NewValidationError("cannot register biometric data: %s", reason)
	}

	descriptor, err := utils.DecodeBase64Descriptor(input.Descriptor)
	if err != nil {
		return nil, NewValidationError("invalid descriptor: %s", err.Error())
	}
	if len(descriptor) != constants.DESCRIPTOR_LENGTH {
		return nil, NewValidationError("descriptor must have %d components, got %d", constants.DESCRIPTOR_LENGTH, len(descriptor))
	}
	if input.CustomThreshold != nil && (*input.CustomThreshold <= 0 || *input.CustomThreshold > 1) {
		return nil, NewValidationError("custom match threshold must be in (0,1]")
	}

	// The base64 form is encrypted as-is so the stored descriptor round-trips
	// byte for byte.
	sealed, err := s.Crypto.Encrypt([]byte(input.Descriptor))
	if err != nil {
		return nil, &CryptoError{Op: "register", Err: err}
	}

	replaced, err := s.Records.DeactivateActive(input.UserID, input.Type, "re-registration")
	if err != nil {
		return nil, &InternalError{Err: err}
	}

	// The record keeps the enrollment context alongside caller metadata: how
	// liveness passed and from which device, for later forensics.
	metadata := map[string]any{}
	for key, value := range input.Metadata {
		metadata[key] = value
	}
	metadata["livenessMethod"] = liveness.Method
	metadata["livenessScore"] = liveness.Score
	if liveness.Details != nil {
		metadata["livenessDetails"] = liveness.Details
	}
	if input.IPAddress != nil {
		metadata["registrationIP"] = *input.IPAddress
	}
	if input.UserAgent != nil {
		metadata["registrationUserAgent"] = *input.UserAgent
	}

	record := entities.BiometricRecord{
		UserID:               input.UserID,
		Type:                 input.Type,
		Ciphertext:           sealed.Ciphertext,
		IV:                   sealed.IV,
		AuthTag:              sealed.AuthTag,
		Active:               true,
		QualityScore:         DescriptorQuality(descriptor),
		CustomMatchThreshold: input.CustomThreshold,
		Metadata:             metadata,
	}
	created, err := s.Records.Create(ctx, record)
	if err != nil {
		return nil, &InternalError{Err: err}
	}

	s.Audit.Record("biometric.register", input.UserID, &created.ID, map[string]any{
		"type":         input.Type,
		"qualityScore": created.QualityScore,
		"replaced":     replaced > 0,
	}, input.IPAddress, input.UserAgent)

	return &RegisterOutput{
		RecordID:     created.ID,
		QualityScore: created.QualityScore,
		Replaced:     replaced > 0,
	}, nil
}

type VerifyInput struct {
	UserID     string
	Type       entities.BiometricType
	Descriptor string
	Proof      *LivenessProof
	IPAddress  *string
	UserAgent  *string
}

type VerifyOutput struct {
	Outcome   *VerificationOutcome `json:"outcome,omitempty"`
	Locked    bool                 `json:"locked"`
	LockUntil *time.Time           `json:"lockUntil,omitempty"`
}

// Verify runs the full verification pipeline: liveness, descriptor match,
// anti-spoofing analysis, fusion, risk-adjusted thresholding and the security
// policy around failures. A failed verification is a value, not an error.
func (s *Service) Verify(ctx context.Context, input VerifyInput) (*VerifyOutput, error) {
	user, err := s.Users.FindByID(input.UserID)
	if err != nil {
		return nil, &InternalError{Err: err}
	}
	if user == nil || user.Deactivated {
		return nil, &NotFoundError{Entity: "user"}
	}

	record, err := s.Records.FindActive(input.UserID, input.Type)
	if err != nil {
		return nil, &InternalError{Err: err}
	}
	if record == nil {
		return nil, &NotFoundError{Entity: "biometric record"}
	}

	now := s.now()
	if record.IsLocked(now) {
		s.Audit.Record("biometric.verify.locked", input.UserID, &record.ID, map[string]any{
			"lockUntil": record.SecurityFlags.LockUntil,
		}, input.IPAddress, input.UserAgent)
		return &VerifyOutput{Locked: true, LockUntil: record.SecurityFlags.LockUntil}, nil
	}

	probe, err := utils.DecodeBase64Descriptor(input.Descriptor)
	if err != nil {
		return nil, NewValidationError("invalid descriptor: %s", err.Error())
	}
	if len(probe) != constants.DESCRIPTOR_LENGTH {
		return nil, NewValidationError("descriptor must have %d components, got %d", constants.DESCRIPTOR_LENGTH, len(probe))
	}

	// Liveness always runs, even when the match is doomed, so the anomaly
	// detector can compare the two signals.
	liveness := s.runLiveness(input.Proof)

	stored, err := s.decryptDescriptor(record)
	if err != nil {
		return nil, err
	}

	faceMatch, err := s.Scorer.Score(probe, stored)
	if err != nil {
		return nil, err
	}

	var imageData []byte
	var motionData *MotionData
	if input.Proof != nil {
		imageData = input.Proof.ImageData
		motionData = input.Proof.MotionData
	}
	texture := s.Texture.Analyze(imageData)
	motion := s.Motion.Analyze(motionData)

	textureScore := texture.TextureScore*0.6 + texture.Confidence*0.4
	motionScore := motion.MicroMovementScore*0.6 + motion.AccelerationPatternScore*0.4
	consistency := signalConsistency(faceMatch, liveness.Score, textureScore, motionScore)

	finalScore := clamp01(faceMatch*constants.WEIGHT_FACE_MATCH +
		liveness.Score*constants.WEIGHT_LIVENESS +
		textureScore*constants.WEIGHT_TEXTURE +
		motionScore*constants.WEIGHT_MOTION +
		consistency*constants.WEIGHT_CONSISTENCY)

	baseThreshold := constants.BASE_MATCH_THRESHOLD
	if record.CustomMatchThreshold != nil {
		baseThreshold = *record.CustomMatchThreshold
	}
	riskFactor := ComputeRiskFactor(RiskContext{
		RecentFailures:   record.Stats.FailureCount,
		IPChanged:        changed(record.LastSuccessIP, input.IPAddress),
		UserAgentChanged: changed(record.LastSuccessUserAgent, input.UserAgent),
		CandidateScore:   faceMatch,
	})
	threshold := AdjustedThreshold(baseThreshold, riskFactor)

	var reasons []string
	if !liveness.Verified {
		reasons = append(reasons, ReasonLivenessFailed)
	}
	if finalScore < threshold {
		reasons = append(reasons, ReasonFaceMatchFailed)
	}
	if !texture.IsRealFace {
		reasons = append(reasons, ReasonTextureFailed)
	}
	verified := len(reasons) == 0

	outcome := &VerificationOutcome{
		Verified:       verified,
		Score:          finalScore,
		FaceMatchScore: faceMatch,
		LivenessScore:  liveness.Score,
		SecurityScore:  clamp01((textureScore + motionScore) / 2),
		Confidence:     clamp01((liveness.Confidence + texture.Confidence + motion.Confidence) / 3),
		Method:         VerificationMethod,
		Timestamp:      now,
		Reasons:        reasons,
	}

	updated, err := s.applyVerifyResult(record, outcome, input)
	if err != nil {
		return nil, err
	}

	s.Audit.Record("biometric.verify", input.UserID, &record.ID, map[string]any{
		"verified":       verified,
		"score":          finalScore,
		"threshold":      threshold,
		"riskFactor":     riskFactor,
		"reasons":        reasons,
		"faceMatchScore": faceMatch,
		"livenessScore":  liveness.Score,
		"textureScore":   textureScore,
		"motionScore":    motionScore,
		"consistency":    consistency,
	}, input.IPAddress, input.UserAgent)

	output := &VerifyOutput{Outcome: outcome}
	if updated.SecurityFlags.TemporaryLock {
		output.Locked = true
		output.LockUntil = updated.SecurityFlags.LockUntil
	}
	return output, nil
}

func (s *Service) decryptDescriptor(record *entities.BiometricRecord) ([]float64, error) {
	plaintext, err := s.Crypto.Decrypt(cryptography.EncryptedPayload{
		Ciphertext: record.Ciphertext,
		IV:         record.IV,
		AuthTag:    record.AuthTag,
	})
	if err != nil {
		return nil, &CryptoError{Op: "verify", Err: err}
	}
	stored, err := utils.DecodeBase64Descriptor(string(plaintext))
	if err != nil {
		// Stored data that decrypts but does not parse means corruption, not
		// bad input.
		return nil, &InternalError{Err: err}
	}
	return stored, nil
}

// applyVerifyResult folds the outcome into the record's stats and security
// flags under optimistic concurrency. One retry against a fresh read, then the
// write is abandoned as an internal failure.
func (s *Service) applyVerifyResult(record *entities.BiometricRecord, outcome *VerificationOutcome, input VerifyInput) (*entities.BiometricRecord, error) {
	for attempt := 0; attempt < 2; attempt++ {
		next := s.nextState(record, outcome, input)

		ok, err := s.Records.UpdateWithVersion(record.ID, record.Version, next.payload)
		if err != nil {
			return nil, &InternalError{Err: err}
		}
		if ok {
			if next.locked {
				logger.Warning("biometric record locked after repeated failures", logger.LoggerOptions{
					Key:  "userID",
					Data: record.UserID,
				}, logger.LoggerOptions{
					Key:  "lockUntil",
					Data: next.flags.LockUntil,
				})
				s.Alerts.SendLockoutAlert(record.UserID, *next.flags.LockUntil)
			}
			record.Stats = next.stats
			record.SecurityFlags = next.flags
			return record, nil
		}

		fresh, err := s.Records.FindByID(record.ID)
		if err != nil || fresh == nil {
			return nil, &InternalError{Err: err}
		}
		record = fresh
	}
	return nil, NewInternalErrorf("concurrent update conflict on biometric record")
}

type stateTransition struct {
	payload map[string]any
	stats   entities.VerificationStats
	flags   entities.SecurityFlags
	locked  bool
}

func (s *Service) nextState(record *entities.BiometricRecord, outcome *VerificationOutcome, input VerifyInput) stateTransition {
	now := s.now()
	stats := record.Stats
	flags := record.SecurityFlags
	payload := map[string]any{}
	newlyLocked := false

	stats.LastScores = append(stats.LastScores, outcome.Score)
	if len(stats.LastScores) > constants.LAST_SCORES_WINDOW {
		stats.LastScores = stats.LastScores[len(stats.LastScores)-constants.LAST_SCORES_WINDOW:]
	}

	if outcome.Verified {
		stats.SuccessCount++
		// Success resets the failure streak but never clears an active lock.
		// An expired lock is cleared here so the flags do not go stale.
		stats.FailureCount = 0
		if flags.TemporaryLock && !record.IsLocked(now) {
			flags.TemporaryLock = false
			flags.LockUntil = nil
		}
		flags.PossibleSpoofingAttempt = false
		flags.AnomalyType = nil

		payload["lastVerifiedAt"] = now
		if input.IPAddress != nil {
			payload["lastSuccessIP"] = *input.IPAddress
		}
		if input.UserAgent != nil {
			payload["lastSuccessUserAgent"] = *input.UserAgent
		}
	} else {
		stats.FailureCount++
		detail := entities.FailureDetail{
			Score:     outcome.Score,
			Reasons:   outcome.Reasons,
			Timestamp: now,
		}
		if input.IPAddress != nil {
			detail.IPAddress = *input.IPAddress
		}
		stats.LastFailureDetails = append(stats.LastFailureDetails, detail)
		if len(stats.LastFailureDetails) > constants.LAST_SCORES_WINDOW {
			stats.LastFailureDetails = stats.LastFailureDetails[len(stats.LastFailureDetails)-constants.LAST_SCORES_WINDOW:]
		}

		if stats.FailureCount >= constants.MAX_FAILED_ATTEMPTS && !record.IsLocked(now) {
			lockUntil := now.Add(time.Duration(constants.LOCK_DURATION_MINUTES) * time.Minute)
			flags.TemporaryLock = true
			flags.LockUntil = &lockUntil
			newlyLocked = true
		}

		// A near-zero fused score against a strong liveness signal is the
		// signature of a photo attack: a live subject presenting someone
		// else's face data.
		if outcome.Score < constants.ANOMALY_LOW_SCORE && outcome.LivenessScore > constants.ANOMALY_HIGH_LIVENESS {
			flags.PossibleSpoofingAttempt = true
			flags.AnomalyType = utils.GetStringPointer("photo_attack")
		}
	}

	payload["stats"] = stats
	payload["securityFlags"] = flags
	return stateTransition{payload: payload, stats: stats, flags: flags, locked: newlyLocked}
}

// CheckLiveness runs a standalone liveness check with no record lookup.
func (s *Service) CheckLiveness(proof *LivenessProof) *LivenessResult {
	return s.runLiveness(proof)
}

// RemoveUserBiometricData deactivates every biometric record a user holds.
// Records are retired, not deleted, so the audit trail stays coherent.
func (s *Service) RemoveUserBiometricData(userID string, ip *string, userAgent *string) (int64, error) {
	user, err := s.Users.FindByID(userID)
	if err != nil {
		return 0, &InternalError{Err: err}
	}
	if user == nil {
		return 0, &NotFoundError{Entity: "user"}
	}

	removed, err := s.Records.DeactivateAll(userID, "user_request")
	if err != nil {
		return 0, &InternalError{Err: err}
	}

	s.Audit.Record("biometric.remove", userID, nil, map[string]any{
		"recordsDeactivated": removed,
	}, ip, userAgent)
	return removed, nil
}

// signalConsistency rewards agreement across the independent signals. A wide
// spread means at least one layer disagrees with the rest, which is itself
// suspicious.
func signalConsistency(signals ...float64) float64 {
	if len(signals) == 0 {
		return 0
	}
	min, max := signals[0], signals[0]
	for _, v := range signals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return clamp01(1 - (max - min))
}

func changed(previous *string, current *string) bool {
	if previous == nil || current == nil {
		return false
	}
	return *previous != *current
}

// Production store implementations backed by the mongo repositories.

type mongoUserStore struct{}

func (mongoUserStore) FindByID(id string) (*entities.User, error) {
	return repository.UserRepo().FindByID(id)
}

type mongoRecordStore struct{}

func (mongoRecordStore) FindActive(userID string, biometricType entities.BiometricType) (*entities.BiometricRecord, error) {
	return repository.BiometricRecordRepo().FindOneByFilter(map[string]interface{}{
		"userID": userID,
		"type":   biometricType,
		"active": true,
	})
}

func (mongoRecordStore) FindByID(id string) (*entities.BiometricRecord, error) {
	return repository.BiometricRecordRepo().FindByID(id)
}

func (mongoRecordStore) Create(ctx context.Context, record entities.BiometricRecord) (*entities.BiometricRecord, error) {
	return repository.BiometricRecordRepo().CreateOne(ctx, record)
}

func (mongoRecordStore) DeactivateActive(userID string, biometricType entities.BiometricType, reason string) (int64, error) {
	return repository.BiometricRecordRepo().UpdatePartialByFilter(map[string]interface{}{
		"userID": userID,
		"type":   biometricType,
		"active": true,
	}, deactivationPayload(reason))
}

func (mongoRecordStore) DeactivateAll(userID string, reason string) (int64, error) {
	return repository.BiometricRecordRepo().UpdatePartialByFilter(map[string]interface{}{
		"userID": userID,
		"active": true,
	}, deactivationPayload(reason))
}

// Retired records keep when and why they were retired so the audit trail
// stays reconstructable from the records alone.
func deactivationPayload(reason string) map[string]any {
	return map[string]any{
		"active":                     false,
		"metadata.deactivatedAt":     time.Now(),
		"metadata.deactivatedReason": reason,
	}
}

func (mongoRecordStore) UpdateWithVersion(id string, version int64, payload map[string]any) (bool, error) {
	return repository.BiometricRecordRepo().UpdateWithVersion(id, version, payload)
}

// ChallengeNonceKey is the cache key an issued challenge nonce is stored
// under. The challenge controller writes it; redisChallengeStore consumes it.
func ChallengeNonceKey(nonce string) string {
	return fmt.Sprintf("%s-challenge-nonce", nonce)
}

type redisChallengeStore struct{}

func (redisChallengeStore) Consume(nonce string) (ChallengeType, bool) {
	key := ChallengeNonceKey(nonce)
	issued := cache.Cache.FindOne(key)
	if issued == nil {
		return "", false
	}
	cache.Cache.DeleteOne(key)
	return ChallengeType(*issued), true
}

type envCrypto struct{}

func (envCrypto) Encrypt(payload []byte) (*cryptography.EncryptedPayload, error) {
	return cryptography.EncryptData(payload, nil)
}

func (envCrypto) Decrypt(payload cryptography.EncryptedPayload) ([]byte, error) {
	return cryptography.DecryptData(payload, nil)
}

type auditlogSink struct{}

func (auditlogSink) Record(action string, userID string, targetID *string, details map[string]any, ip *string, userAgent *string) {
	auditlog.Record(action, userID, targetID, details, ip, userAgent)
}

// InitializeService wires the production service. alerts is injected from the
// message queue layer to keep this package transport-free.
func InitializeService(alerts AlertSink) {
	BiometricService = NewService(mongoUserStore{}, mongoRecordStore{}, envCrypto{}, auditlogSink{}, alerts)
	BiometricService.Challenges = redisChallengeStore{}
}
