package biometry

import (
	"context"
	"errors"
	"testing"
	"time"

	"veridoc.mx/application/constants"
	"veridoc.mx/application/utils"
	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/cryptography"
)

type fakeUserStore struct {
	users map[string]*entities.User
}

func (f *fakeUserStore) FindByID(id string) (*entities.User, error) {
	return f.users[id], nil
}

type fakeRecordStore struct {
	records        map[string]*entities.BiometricRecord
	failUpdates    int
	updateAttempts int
}

func (f *fakeRecordStore) FindActive(userID string, biometricType entities.BiometricType) (*entities.BiometricRecord, error) {
	for _, record := range f.records {
		if record.UserID == userID && record.Type == biometricType && record.Active {
			copied := *record
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordStore) FindByID(id string) (*entities.BiometricRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRecordStore) Create(ctx context.Context, record entities.BiometricRecord) (*entities.BiometricRecord, error) {
	parsed := record.ParseModel().(*entities.BiometricRecord)
	f.records[parsed.ID] = parsed
	return parsed, nil
}

func (f *fakeRecordStore) DeactivateActive(userID string, biometricType entities.BiometricType, reason string) (int64, error) {
	var count int64
	for _, record := range f.records {
		if record.UserID == userID && record.Type == biometricType && record.Active {
			f.deactivate(record, reason)
			count++
		}
	}
	return count, nil
}

func (f *fakeRecordStore) DeactivateAll(userID string, reason string) (int64, error) {
	var count int64
	for _, record := range f.records {
		if record.UserID == userID && record.Active {
			f.deactivate(record, reason)
			count++
		}
	}
	return count, nil
}

func (f *fakeRecordStore) deactivate(record *entities.BiometricRecord, reason string) {
	record.Active = false
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	record.Metadata["deactivatedAt"] = time.Now()
	record.Metadata["deactivatedReason"] = reason
}

func (f *fakeRecordStore) UpdateWithVersion(id string, version int64, payload map[string]any) (bool, error) {
	f.updateAttempts++
	if f.failUpdates > 0 {
		f.failUpdates--
		return false, nil
	}
	record, ok := f.records[id]
	if !ok || record.Version != version {
		return false, nil
	}
	if stats, ok := payload["stats"].(entities.VerificationStats); ok {
		record.Stats = stats
	}
	if flags, ok := payload["securityFlags"].(entities.SecurityFlags); ok {
		record.SecurityFlags = flags
	}
	if verifiedAt, ok := payload["lastVerifiedAt"].(time.Time); ok {
		record.LastVerifiedAt = &verifiedAt
	}
	if ip, ok := payload["lastSuccessIP"].(string); ok {
		record.LastSuccessIP = &ip
	}
	if agent, ok := payload["lastSuccessUserAgent"].(string); ok {
		record.LastSuccessUserAgent = &agent
	}
	record.Version++
	return true, nil
}

// plainCrypto stores the payload unchanged so tests stay free of key material.
type plainCrypto struct{}

func (plainCrypto) Encrypt(payload []byte) (*cryptography.EncryptedPayload, error) {
	return &cryptography.EncryptedPayload{Ciphertext: string(payload), IV: "iv", AuthTag: "tag"}, nil
}

func (plainCrypto) Decrypt(payload cryptography.EncryptedPayload) ([]byte, error) {
	return []byte(payload.Ciphertext), nil
}

type failingCrypto struct{}

func (failingCrypto) Encrypt(payload []byte) (*cryptography.EncryptedPayload, error) {
	return nil, errors.New("seal failed")
}

func (failingCrypto) Decrypt(payload cryptography.EncryptedPayload) ([]byte, error) {
	return nil, errors.New("open failed")
}

type recordingAudit struct {
	actions []string
	details map[string]map[string]any
}

func (r *recordingAudit) Record(action string, userID string, targetID *string, details map[string]any, ip *string, userAgent *string) {
	r.actions = append(r.actions, action)
	if r.details == nil {
		r.details = map[string]map[string]any{}
	}
	r.details[action] = details
}

func (r *recordingAudit) has(action string) bool {
	for _, a := range r.actions {
		if a == action {
			return true
		}
	}
	return false
}

type recordingAlerts struct {
	lockouts []time.Time
}

func (r *recordingAlerts) SendLockoutAlert(userID string, lockUntil time.Time) {
	r.lockouts = append(r.lockouts, lockUntil)
}

type fakeChallengeStore struct {
	issued map[string]ChallengeType
}

func (f *fakeChallengeStore) Consume(nonce string) (ChallengeType, bool) {
	challenge, found := f.issued[nonce]
	if found {
		delete(f.issued, nonce)
	}
	return challenge, found
}

// Fixed-output strategies used to drive the fused score independently of the
// liveness verdict.

type fixedScorer struct{ score float64 }

func (s fixedScorer) Score(a, b []float64) (float64, error) { return s.score, nil }

type passingTexture struct{}

func (passingTexture) Analyze(imageData []byte) *TextureAnalysis {
	return &TextureAnalysis{IsRealFace: true, Confidence: 1, TextureScore: 1, NoisePatternScore: 1, DepthConsistencyScore: 1}
}

type passingMotion struct{}

func (passingMotion) Analyze(motion *MotionData) *MotionAnalysis {
	return &MotionAnalysis{IsNaturalMotion: true, Confidence: 1, MicroMovementScore: 1, AccelerationPatternScore: 1}
}

type serviceFixture struct {
	service *Service
	users   *fakeUserStore
	records *fakeRecordStore
	audit   *recordingAudit
	alerts  *recordingAlerts
	now     time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	users := &fakeUserStore{users: map[string]*entities.User{
		"user-1": {ID: "user-1", Email: utils.GetStringPointer("u1@veridoc.mx")},
	}}
	records := &fakeRecordStore{records: map[string]*entities.BiometricRecord{}}
	audit := &recordingAudit{}
	alerts := &recordingAlerts{}
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	service := NewService(users, records, plainCrypto{}, audit, alerts).
		WithClock(func() time.Time { return now })
	return &serviceFixture{service: service, users: users, records: records, audit: audit, alerts: alerts, now: now}
}

func testDescriptor(t *testing.T, seed float64) string {
	t.Helper()
	descriptor := make([]float64, constants.DESCRIPTOR_LENGTH)
	for i := range descriptor {
		descriptor[i] = seed + float64(i%7)*0.1
	}
	encoded, err := utils.EncodeDescriptor(descriptor)
	if err != nil {
		t.Fatalf("failed to encode descriptor: %v", err)
	}
	return encoded
}

// unrelatedDescriptor builds a vector pointing away from testDescriptor output
// in most components.
func unrelatedDescriptor(t *testing.T) string {
	t.Helper()
	descriptor := make([]float64, constants.DESCRIPTOR_LENGTH)
	for i := range descriptor {
		if i%2 == 0 {
			descriptor[i] = -1
		} else {
			descriptor[i] = 0.01
		}
	}
	encoded, err := utils.EncodeDescriptor(descriptor)
	if err != nil {
		t.Fatalf("failed to encode descriptor: %v", err)
	}
	return encoded
}

func (f *serviceFixture) register(t *testing.T) *RegisterOutput {
	t.Helper()
	out, err := f.service.Register(context.Background(), RegisterInput{
		UserID:     "user-1",
		Type:       entities.BiometricTypeFace,
		Descriptor: testDescriptor(t, 0.2),
		Proof:      freshBlinkProof(f.now),
		IPAddress:  utils.GetStringPointer("10.0.0.1"),
		UserAgent:  utils.GetStringPointer("test-agent"),
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return out
}

func (f *serviceFixture) goodVerifyInput(t *testing.T) VerifyInput {
	t.Helper()
	proof := freshBlinkProof(f.now)
	proof.ImageData = noisyImage(1024)
	return VerifyInput{
		UserID:     "user-1",
		Type:       entities.BiometricTypeFace,
		Descriptor: testDescriptor(t, 0.2),
		Proof:      proof,
		IPAddress:  utils.GetStringPointer("10.0.0.1"),
		UserAgent:  utils.GetStringPointer("test-agent"),
	}
}

func (f *serviceFixture) badVerifyInput(t *testing.T) VerifyInput {
	input := f.goodVerifyInput(t)
	input.Descriptor = unrelatedDescriptor(t)
	return input
}

func TestRegister(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.Register(context.Background(), RegisterInput{
			UserID:     "ghost",
			Type:       entities.BiometricTypeFace,
			Descriptor: testDescriptor(t, 0.2),
			Proof:      freshBlinkProof(f.now),
		})
		if !IsNotFoundError(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("failed liveness blocks enrollment", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.Register(context.Background(), RegisterInput{
			UserID:     "user-1",
			Type:       entities.BiometricTypeFace,
			Descriptor: testDescriptor(t, 0.2),
			Proof: &LivenessProof{
				Challenge: ChallengeBlink,
				Timestamp: f.now.Add(-2 * time.Minute),
			},
		})
		if !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !f.audit.has("biometric.register.rejected") {
			t.Error("rejected enrollment must be audited")
		}
	})

	t.Run("wrong descriptor length", func(t *testing.T) {
		f := newServiceFixture(t)
		short, _ := utils.EncodeDescriptor([]float64{1, 2, 3})
		_, err := f.service.Register(context.Background(), RegisterInput{
			UserID:     "user-1",
			Type:       entities.BiometricTypeFace,
			Descriptor: short,
			Proof:      freshBlinkProof(f.now),
		})
		if !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("successful enrollment", func(t *testing.T) {
		f := newServiceFixture(t)
		out := f.register(t)
		if out.RecordID == "" {
			t.Error("expected a record id")
		}
		if out.QualityScore <= 0 || out.QualityScore > 1 {
			t.Errorf("quality score out of range: %v", out.QualityScore)
		}
		if out.Replaced {
			t.Error("first enrollment should not report a replacement")
		}
		if !f.audit.has("biometric.register") {
			t.Error("enrollment must be audited")
		}
	})

	t.Run("enrollment context lands in the record metadata", func(t *testing.T) {
		f := newServiceFixture(t)
		out, err := f.service.Register(context.Background(), RegisterInput{
			UserID:     "user-1",
			Type:       entities.BiometricTypeFace,
			Descriptor: testDescriptor(t, 0.2),
			Proof:      freshBlinkProof(f.now),
			Metadata:   map[string]any{"enrolledFrom": "mobile-app"},
			IPAddress:  utils.GetStringPointer("10.0.0.1"),
			UserAgent:  utils.GetStringPointer("test-agent"),
		})
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		record, _ := f.records.FindByID(out.RecordID)
		if record.Metadata["livenessMethod"] != "blink-sequence" {
			t.Errorf("livenessMethod = %v, want blink-sequence", record.Metadata["livenessMethod"])
		}
		score, ok := record.Metadata["livenessScore"].(float64)
		if !ok || score < constants.MIN_LIVENESS_SCORE {
			t.Errorf("livenessScore = %v, want at least %v", record.Metadata["livenessScore"], constants.MIN_LIVENESS_SCORE)
		}
		if record.Metadata["registrationIP"] != "10.0.0.1" {
			t.Errorf("registrationIP = %v, want 10.0.0.1", record.Metadata["registrationIP"])
		}
		if record.Metadata["registrationUserAgent"] != "test-agent" {
			t.Errorf("registrationUserAgent = %v, want test-agent", record.Metadata["registrationUserAgent"])
		}
		if record.Metadata["enrolledFrom"] != "mobile-app" {
			t.Error("caller metadata must be preserved alongside the enrollment context")
		}
	})

	t.Run("re-enrollment replaces the active record", func(t *testing.T) {
		f := newServiceFixture(t)
		first := f.register(t)
		second := f.register(t)
		if !second.Replaced {
			t.Error("second enrollment should report a replacement")
		}
		old, _ := f.records.FindByID(first.RecordID)
		if old.Active {
			t.Error("replaced record must be deactivated")
		}
		if old.Metadata["deactivatedReason"] != "re-registration" {
			t.Errorf("deactivatedReason = %v, want re-registration", old.Metadata["deactivatedReason"])
		}
		if _, ok := old.Metadata["deactivatedAt"]; !ok {
			t.Error("retired record must record when it was deactivated")
		}
	})

	t.Run("crypto failure surfaces as crypto error", func(t *testing.T) {
		f := newServiceFixture(t)
		f.service.Crypto = failingCrypto{}
		_, err := f.service.Register(context.Background(), RegisterInput{
			UserID:     "user-1",
			Type:       entities.BiometricTypeFace,
			Descriptor: testDescriptor(t, 0.2),
			Proof:      freshBlinkProof(f.now),
		})
		var cryptoErr *CryptoError
		if !errors.As(err, &cryptoErr) {
			t.Fatalf("expected crypto error, got %v", err)
		}
	})
}

func TestVerifyMatch(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	out, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if out.Locked {
		t.Fatal("fresh record should not be locked")
	}
	if !out.Outcome.Verified {
		t.Fatalf("identical descriptor should verify, reasons %v", out.Outcome.Reasons)
	}
	if out.Outcome.FaceMatchScore < 0.999 {
		t.Errorf("self-match face score = %v, want ~1", out.Outcome.FaceMatchScore)
	}
	if out.Outcome.Method != VerificationMethod {
		t.Errorf("Method = %q, want %q", out.Outcome.Method, VerificationMethod)
	}

	record, _ := f.records.FindActive("user-1", entities.BiometricTypeFace)
	if record.Stats.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", record.Stats.SuccessCount)
	}
	if record.LastVerifiedAt == nil {
		t.Error("lastVerifiedAt should be stamped on success")
	}
	if record.LastSuccessIP == nil || *record.LastSuccessIP != "10.0.0.1" {
		t.Error("last success IP should be stamped")
	}
	if len(record.Stats.LastScores) != 1 {
		t.Errorf("LastScores length = %d, want 1", len(record.Stats.LastScores))
	}
}

func TestVerifyMismatch(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	out, err := f.service.Verify(context.Background(), f.badVerifyInput(t))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if out.Outcome.Verified {
		t.Fatal("unrelated descriptor should not verify")
	}
	found := false
	for _, reason := range out.Outcome.Reasons {
		if reason == ReasonFaceMatchFailed {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons %v should include %s", out.Outcome.Reasons, ReasonFaceMatchFailed)
	}

	record, _ := f.records.FindActive("user-1", entities.BiometricTypeFace)
	if record.Stats.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", record.Stats.FailureCount)
	}
	if len(record.Stats.LastFailureDetails) != 1 {
		t.Errorf("failure details not recorded")
	}
}

func TestVerifyNoRecord(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
	if !IsNotFoundError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifyUnknownUser(t *testing.T) {
	t.Run("deleted user", func(t *testing.T) {
		f := newServiceFixture(t)
		f.register(t)
		delete(f.users.users, "user-1")

		_, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
		if !IsNotFoundError(err) {
			t.Fatalf("a leftover active record must not verify without its user, got %v", err)
		}
	})

	t.Run("deactivated user", func(t *testing.T) {
		f := newServiceFixture(t)
		f.register(t)
		f.users.users["user-1"].Deactivated = true

		_, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
		if !IsNotFoundError(err) {
			t.Fatalf("expected not found for a deactivated user, got %v", err)
		}
	})
}

func TestChallengeNonceBinding(t *testing.T) {
	t.Run("bound nonce verifies once", func(t *testing.T) {
		f := newServiceFixture(t)
		f.register(t)
		f.service.Challenges = &fakeChallengeStore{issued: map[string]ChallengeType{"nonce-1": ChallengeBlink}}

		input := f.goodVerifyInput(t)
		input.Proof.Nonce = "nonce-1"
		out, err := f.service.Verify(context.Background(), input)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !out.Outcome.Verified {
			t.Fatalf("proof matching its issued challenge should verify, reasons %v", out.Outcome.Reasons)
		}

		// The nonce is consumed on the first use; replaying it fails liveness.
		out, err = f.service.Verify(context.Background(), input)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if out.Outcome.Verified {
			t.Fatal("a reused nonce must not verify")
		}
	})

	t.Run("challenge mismatch fails liveness", func(t *testing.T) {
		f := newServiceFixture(t)
		f.service.Challenges = &fakeChallengeStore{issued: map[string]ChallengeType{"nonce-2": ChallengeSmile}}

		proof := freshBlinkProof(f.now)
		proof.Nonce = "nonce-2"
		result := f.service.CheckLiveness(proof)
		if result.Verified {
			t.Fatal("a blink proof cannot answer a smile challenge")
		}
		if result.Method != "challenge-binding" {
			t.Errorf("Method = %q, want challenge-binding", result.Method)
		}
	})

	t.Run("unknown nonce blocks enrollment", func(t *testing.T) {
		f := newServiceFixture(t)
		f.service.Challenges = &fakeChallengeStore{issued: map[string]ChallengeType{}}

		proof := freshBlinkProof(f.now)
		proof.Nonce = "expired"
		_, err := f.service.Register(context.Background(), RegisterInput{
			UserID:     "user-1",
			Type:       entities.BiometricTypeFace,
			Descriptor: testDescriptor(t, 0.2),
			Proof:      proof,
		})
		if !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("nonce-free proof is unaffected", func(t *testing.T) {
		f := newServiceFixture(t)
		f.register(t)
		f.service.Challenges = &fakeChallengeStore{issued: map[string]ChallengeType{}}

		out, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !out.Outcome.Verified {
			t.Fatalf("proof without a nonce should verify, reasons %v", out.Outcome.Reasons)
		}
	})
}

func TestVerifyLivenessGateOverridesScore(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	// Every non-liveness signal maxed out so the fused score clears the
	// threshold on its own.
	f.service.Scorer = fixedScorer{score: 0.99}
	f.service.Texture = passingTexture{}
	f.service.Motion = passingMotion{}

	input := f.goodVerifyInput(t)
	input.Proof.Timestamp = f.now.Add(-2 * time.Minute)

	out, err := f.service.Verify(context.Background(), input)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if out.Outcome.Score < constants.BASE_MATCH_THRESHOLD {
		t.Fatalf("fused score %v should clear the base threshold for this test to bite", out.Outcome.Score)
	}
	if out.Outcome.Verified {
		t.Fatal("failed liveness must veto verification regardless of the fused score")
	}
	if len(out.Outcome.Reasons) != 1 || out.Outcome.Reasons[0] != ReasonLivenessFailed {
		t.Errorf("Reasons = %v, want only %s", out.Outcome.Reasons, ReasonLivenessFailed)
	}
}

func TestVerifyAuditBreakdown(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	if _, err := f.service.Verify(context.Background(), f.goodVerifyInput(t)); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	details := f.audit.details["biometric.verify"]
	if details == nil {
		t.Fatal("verify must be audited with its details")
	}
	for _, key := range []string{"faceMatchScore", "livenessScore", "textureScore", "motionScore", "consistency"} {
		if _, ok := details[key]; !ok {
			t.Errorf("audit details missing %s", key)
		}
	}
	if score, ok := details["faceMatchScore"].(float64); !ok || score < 0.999 {
		t.Errorf("audited faceMatchScore = %v, want ~1", details["faceMatchScore"])
	}
}

func TestVerifyLockout(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	for i := 0; i < constants.MAX_FAILED_ATTEMPTS; i++ {
		out, err := f.service.Verify(context.Background(), f.badVerifyInput(t))
		if err != nil {
			t.Fatalf("verify %d failed: %v", i, err)
		}
		if i < constants.MAX_FAILED_ATTEMPTS-1 && out.Locked {
			t.Fatalf("locked after only %d failures", i+1)
		}
		if i == constants.MAX_FAILED_ATTEMPTS-1 && !out.Locked {
			t.Fatal("expected lock after the final failure")
		}
	}

	record, _ := f.records.FindActive("user-1", entities.BiometricTypeFace)
	if !record.SecurityFlags.TemporaryLock {
		t.Fatal("record should carry the lock flag")
	}
	wantUntil := f.now.Add(time.Duration(constants.LOCK_DURATION_MINUTES) * time.Minute)
	if !record.SecurityFlags.LockUntil.Equal(wantUntil) {
		t.Errorf("LockUntil = %v, want %v", record.SecurityFlags.LockUntil, wantUntil)
	}
	if len(f.alerts.lockouts) != 1 {
		t.Errorf("expected exactly one lockout alert, got %d", len(f.alerts.lockouts))
	}

	// Attempts during the lock are rejected without running the pipeline.
	out, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
	if err != nil {
		t.Fatalf("verify during lock failed: %v", err)
	}
	if !out.Locked || out.Outcome != nil {
		t.Error("locked record should reject the attempt outright")
	}
}

func TestVerifySuccessResetsFailureStreak(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	for i := 0; i < 2; i++ {
		if _, err := f.service.Verify(context.Background(), f.badVerifyInput(t)); err != nil {
			t.Fatalf("verify failed: %v", err)
		}
	}
	if _, err := f.service.Verify(context.Background(), f.goodVerifyInput(t)); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	record, _ := f.records.FindActive("user-1", entities.BiometricTypeFace)
	if record.Stats.FailureCount != 0 {
		t.Errorf("FailureCount = %d, want 0 after a success", record.Stats.FailureCount)
	}
	if record.Stats.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", record.Stats.SuccessCount)
	}
}

func TestVerifyPhotoAttackAnomaly(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	// Strong liveness with no supporting image and an unrelated descriptor:
	// the fused score collapses while the liveness signal stays high.
	input := VerifyInput{
		UserID:     "user-1",
		Type:       entities.BiometricTypeFace,
		Descriptor: unrelatedDescriptor(t),
		Proof:      freshBlinkProof(f.now),
		IPAddress:  utils.GetStringPointer("10.0.0.1"),
	}
	out, err := f.service.Verify(context.Background(), input)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if out.Outcome.Verified {
		t.Fatal("should not verify")
	}
	if out.Outcome.Score >= constants.ANOMALY_LOW_SCORE {
		t.Fatalf("expected collapsed score, got %v", out.Outcome.Score)
	}
	if out.Outcome.LivenessScore <= constants.ANOMALY_HIGH_LIVENESS {
		t.Fatalf("expected strong liveness, got %v", out.Outcome.LivenessScore)
	}

	record, _ := f.records.FindActive("user-1", entities.BiometricTypeFace)
	if !record.SecurityFlags.PossibleSpoofingAttempt {
		t.Error("spoofing flag should be raised")
	}
	if record.SecurityFlags.AnomalyType == nil || *record.SecurityFlags.AnomalyType != "photo_attack" {
		t.Errorf("AnomalyType = %v, want photo_attack", record.SecurityFlags.AnomalyType)
	}
}

func TestVerifyDecryptFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)
	f.service.Crypto = failingCrypto{}

	_, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
	var cryptoErr *CryptoError
	if !errors.As(err, &cryptoErr) {
		t.Fatalf("expected crypto error, got %v", err)
	}
}

func TestVerifyConcurrentUpdateRetries(t *testing.T) {
	f := newServiceFixture(t)
	f.register(t)

	f.records.failUpdates = 1
	out, err := f.service.Verify(context.Background(), f.goodVerifyInput(t))
	if err != nil {
		t.Fatalf("verify should survive one version conflict: %v", err)
	}
	if !out.Outcome.Verified {
		t.Error("retried verify should still succeed")
	}
	if f.records.updateAttempts != 2 {
		t.Errorf("expected 2 update attempts, got %d", f.records.updateAttempts)
	}

	f.records.failUpdates = 5
	f.records.updateAttempts = 0
	_, err = f.service.Verify(context.Background(), f.goodVerifyInput(t))
	var internalErr *InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("expected internal error after persistent conflicts, got %v", err)
	}
}

func TestRemoveUserBiometricData(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.RemoveUserBiometricData("ghost", nil, nil)
		if !IsNotFoundError(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("deactivates all records", func(t *testing.T) {
		f := newServiceFixture(t)
		f.register(t)
		removed, err := f.service.RemoveUserBiometricData("user-1", utils.GetStringPointer("10.0.0.1"), nil)
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if removed != 1 {
			t.Errorf("removed = %d, want 1", removed)
		}
		record, _ := f.records.FindActive("user-1", entities.BiometricTypeFace)
		if record != nil {
			t.Error("no active record should remain")
		}
		if !f.audit.has("biometric.remove") {
			t.Error("removal must be audited")
		}
		for _, retired := range f.records.records {
			if retired.Metadata["deactivatedReason"] != "user_request" {
				t.Errorf("deactivatedReason = %v, want user_request", retired.Metadata["deactivatedReason"])
			}
		}
	})
}
