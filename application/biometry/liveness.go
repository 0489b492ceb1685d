package biometry

import (
	"fmt"
	"time"

	"veridoc.mx/application/utils"
	"veridoc.mx/infrastructure/logger"
)

const AntiSpoofingMethod = "advanced-anti-spoofing"

// Freshness windows per challenge. Telemetry older than its window is treated
// as a replay regardless of how well it scores.
var freshnessWindows = map[ChallengeType]time.Duration{
	ChallengeBlink:     30 * time.Second,
	ChallengeSmile:     30 * time.Second,
	ChallengeNod:       30 * time.Second,
	ChallengeMouthOpen: 30 * time.Second,
	ChallengeHeadTurn:  45 * time.Second,
	ChallengeSequence:  120 * time.Second,
}

const defaultFreshnessWindow = 30 * time.Second

// LivenessOrchestrator runs one liveness check end to end: freshness gate,
// anti-spoofing layers, then challenge-specific verification. Spoof detection
// runs first and its verdict overrides any challenge score.
type LivenessOrchestrator struct {
	verifiers map[ChallengeType]ChallengeVerifier
	spoof     *SpoofDetector
	now       func() time.Time
}

func NewLivenessOrchestrator() *LivenessOrchestrator {
	texture := &HeuristicTextureAnalyzer{}
	motion := &NaturalMotionAnalyzer{}
	return &LivenessOrchestrator{
		verifiers: map[ChallengeType]ChallengeVerifier{
			ChallengeBlink:     &BlinkVerifier{},
			ChallengeSmile:     &SmileVerifier{},
			ChallengeHeadTurn:  &HeadTurnVerifier{},
			ChallengeNod:       &NodVerifier{},
			ChallengeMouthOpen: &MouthOpenVerifier{},
			ChallengeSequence:  &SequenceVerifier{},
			ChallengeGeneric:   &GenericPresenceVerifier{},
		},
		spoof: &SpoofDetector{Texture: texture, Motion: motion},
		now:   time.Now,
	}
}

// WithClock replaces the time source. Tests pin it to a fixed instant.
func (lo *LivenessOrchestrator) WithClock(now func() time.Time) *LivenessOrchestrator {
	lo.now = now
	return lo
}

func (lo *LivenessOrchestrator) Check(proof *LivenessProof) *LivenessResult {
	if proof == nil {
		return &LivenessResult{
			Verified:   false,
			Method:     "none",
			Reason:     utils.GetStringPointer("no liveness proof supplied"),
			Confidence: 1,
		}
	}

	window, found := freshnessWindows[proof.Challenge]
	if !found {
		window = defaultFreshnessWindow
	}
	// Absolute distance from now: a future-dated stamp is as much a forgery
	// as a stale one.
	age := lo.now().Sub(proof.Timestamp)
	if age < 0 {
		age = -age
	}
	if age > window {
		return &LivenessResult{
			Verified:   false,
			Method:     "freshness-check",
			Reason:     utils.GetStringPointer(fmt.Sprintf("liveness proof is %s old, exceeding the %s window for %s", age.Round(time.Second), window, challengeName(proof.Challenge))),
			Confidence: 1,
		}
	}

	assessment := lo.spoof.Assess(proof)
	if assessment.IsSpoofDetected {
		logger.Warning("spoofing attempt detected during liveness check", logger.LoggerOptions{
			Key:  "challenge",
			Data: proof.Challenge,
		}, logger.LoggerOptions{
			Key:  "confidence",
			Data: assessment.Confidence,
		})
		return &LivenessResult{
			Verified:   false,
			Method:     AntiSpoofingMethod,
			Reason:     assessment.Reason,
			Confidence: assessment.Confidence,
			Details:    assessment.Details,
		}
	}

	verifier, registered := lo.verifiers[proof.Challenge]
	if !registered {
		verifier = lo.verifiers[ChallengeGeneric]
	}
	result := verifier.Verify(proof)

	if result.Details == nil {
		result.Details = map[string]any{}
	}
	result.Details["antispoofingScore"] = clamp01(1 - spoofEvidenceScore(assessment))
	result.Details["challengeCompliance"] = result.Score
	result.Details["timeValidity"] = clamp01(1 - age.Seconds()/window.Seconds())

	return result
}

func spoofEvidenceScore(assessment *SpoofAssessment) float64 {
	if assessment.IsSpoofDetected {
		return assessment.Confidence
	}
	return 0
}

func challengeName(challenge ChallengeType) string {
	if challenge == "" {
		return string(ChallengeGeneric)
	}
	return string(challenge)
}
