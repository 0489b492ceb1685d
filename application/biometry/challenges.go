package biometry

import (
	"fmt"
	"sort"

	"veridoc.mx/application/constants"
	"veridoc.mx/application/utils"
)

// Challenge verifiers score how well the submitted telemetry demonstrates the
// requested action. Each follows the same evidence ladder: a full telemetry
// sequence is the strongest proof, device-side aggregate metrics are next, and
// a bare image is the weakest and is scored with a hard cap so it can never
// pass the liveness gate on its own.

// BlinkVerifier checks for a natural open-closed-open eye transition.
type BlinkVerifier struct{}

func (bv *BlinkVerifier) Verify(proof *LivenessProof) *LivenessResult {
	if len(proof.EyeStateSequence) >= 3 {
		return bv.verifySequence(proof.EyeStateSequence)
	}
	if proof.BlinkMetrics != nil {
		return bv.verifyMetrics(proof.BlinkMetrics)
	}
	if len(proof.ImageData) > 0 {
		return singleImageFallback("blink-single-image")
	}
	return missingTelemetry("blink requires an eye state sequence or blink metrics")
}

func (bv *BlinkVerifier) verifySequence(sequence []EyeState) *LivenessResult {
	sawOpen := false
	sawClosedAfterOpen := false
	reopened := false
	for _, state := range sequence {
		switch {
		case !sawOpen && state.Openness >= 0.6:
			sawOpen = true
		case sawOpen && !sawClosedAfterOpen && state.Openness <= 0.25:
			sawClosedAfterOpen = true
		case sawClosedAfterOpen && state.Openness >= 0.6:
			reopened = true
		}
	}

	if !reopened {
		return &LivenessResult{
			Verified:   false,
			Score:      partialTransitionScore(sawOpen, sawClosedAfterOpen),
			Method:     "blink-sequence",
			Reason:     utils.GetStringPointer("no complete open-closed-open transition found"),
			Confidence: 0.9,
		}
	}
	score := 0.95
	return &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     "blink-sequence",
		Confidence: 0.9,
	}
}

func partialTransitionScore(sawOpen, sawClosed bool) float64 {
	if sawClosed {
		return 0.5
	}
	if sawOpen {
		return 0.25
	}
	return 0
}

func (bv *BlinkVerifier) verifyMetrics(metrics *BlinkMetrics) *LivenessResult {
	if metrics.BlinkCount < 1 {
		return &LivenessResult{
			Verified:   false,
			Method:     "blink-metrics",
			Reason:     utils.GetStringPointer("no blink recorded"),
			Confidence: 0.7,
		}
	}

	// Physiological bands for a genuine blink. Prints and replays miss the
	// duration and transition-speed bands even when EAR looks plausible.
	earScore := bandScore(metrics.AvgEyeAspectRatio, 0.15, 0.45)
	durationScore := bandScore(metrics.BlinkDurationMs, 100, 400)
	transitionScore := bandScore(metrics.TransitionSpeedMs, 30, 150)

	score := clamp01(earScore*0.4 + durationScore*0.35 + transitionScore*0.25)
	return &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     "blink-metrics",
		Confidence: 0.7,
		Details: map[string]any{
			"earScore":        earScore,
			"durationScore":   durationScore,
			"transitionScore": transitionScore,
		},
	}
}

// SmileVerifier checks expression metrics for a genuine, symmetric smile held
// long enough to rule out a frame glitch.
type SmileVerifier struct{}

func (sv *SmileVerifier) Verify(proof *LivenessProof) *LivenessResult {
	metrics := proof.ExpressionMetrics
	if metrics == nil {
		if len(proof.ImageData) > 0 {
			return singleImageFallback("smile-single-image")
		}
		return missingTelemetry("smile requires expression metrics")
	}

	intensityScore := bandScore(metrics.SmileIntensity, 0.4, 1.0)
	symmetryScore := clamp01(metrics.SymmetryScore)
	if metrics.SymmetryScore < 0.6 {
		symmetryScore *= 0.5
	}
	durationScore := clamp01(metrics.DurationMs / 300)

	score := clamp01(intensityScore*0.45 + symmetryScore*0.3 + durationScore*0.25)
	result := &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     "smile-metrics",
		Confidence: 0.75,
	}
	if !result.Verified {
		result.Reason = utils.GetStringPointer("smile intensity, symmetry or duration below expected range")
	}
	return result
}

// HeadTurnVerifier checks the head pose sequence for a deliberate yaw
// excursion followed by a return toward center.
type HeadTurnVerifier struct{}

func (hv *HeadTurnVerifier) Verify(proof *LivenessProof) *LivenessResult {
	return verifyPoseSweep(proof, "head-turn", func(pose HeadPose) float64 { return pose.Yaw }, 20)
}

// NodVerifier is the pitch-axis counterpart of HeadTurnVerifier.
type NodVerifier struct{}

func (nv *NodVerifier) Verify(proof *LivenessProof) *LivenessResult {
	return verifyPoseSweep(proof, "nod", func(pose HeadPose) float64 { return pose.Pitch }, 15)
}

func verifyPoseSweep(proof *LivenessProof, method string, axis func(HeadPose) float64, minDegrees float64) *LivenessResult {
	if len(proof.HeadPoseSequence) < 3 {
		if len(proof.ImageData) > 0 {
			return singleImageFallback(method + "-single-image")
		}
		return missingTelemetry(fmt.Sprintf("%s requires a head pose sequence", method))
	}

	start := axis(proof.HeadPoseSequence[0])
	peak := start
	for _, pose := range proof.HeadPoseSequence {
		if absFloat(axis(pose)-start) > absFloat(peak-start) {
			peak = axis(pose)
		}
	}
	end := axis(proof.HeadPoseSequence[len(proof.HeadPoseSequence)-1])

	excursion := absFloat(peak - start)
	excursionScore := clamp01(excursion / minDegrees)

	// Return-to-center distinguishes a deliberate gesture from a camera pan
	// across a photo.
	returnScore := 1.0
	if excursion > 0 {
		returnScore = clamp01(1 - absFloat(end-start)/excursion)
	}
	smoothness := poseSmoothness(proof.HeadPoseSequence, axis)

	score := clamp01(excursionScore*0.5 + returnScore*0.3 + smoothness*0.2)
	result := &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     method + "-sequence",
		Confidence: 0.85,
		Details: map[string]any{
			"excursionDegrees": excursion,
			"returnScore":      returnScore,
			"smoothness":       smoothness,
		},
	}
	if !result.Verified {
		result.Reason = utils.GetStringPointer(fmt.Sprintf("%s excursion of %.1f degrees below the %.0f degree minimum or no return to center", method, excursion, minDegrees))
	}
	return result
}

// poseSmoothness penalizes frame-to-frame jumps larger than a plausible head
// movement between consecutive samples.
func poseSmoothness(sequence []HeadPose, axis func(HeadPose) float64) float64 {
	jumps := 0
	for i := 1; i < len(sequence); i++ {
		if absFloat(axis(sequence[i])-axis(sequence[i-1])) > 25 {
			jumps++
		}
	}
	return clamp01(1 - float64(jumps)/float64(len(sequence)-1)*2)
}

// MouthOpenVerifier checks mouth telemetry for a wide, sustained opening.
type MouthOpenVerifier struct{}

func (mv *MouthOpenVerifier) Verify(proof *LivenessProof) *LivenessResult {
	metrics := proof.MouthMetrics
	if metrics == nil {
		if len(proof.ImageData) > 0 {
			return singleImageFallback("mouth-open-single-image")
		}
		return missingTelemetry("mouth-open requires mouth metrics")
	}
	if metrics.AvgOpenness >= metrics.MaxOpenness && metrics.MaxOpenness > 0 {
		// A real opening ramps up and down, so the average sits below the
		// peak. Equal values mean a static frame was replayed.
		return &LivenessResult{
			Verified:   false,
			Score:      0.2,
			Method:     "mouth-open-metrics",
			Reason:     utils.GetStringPointer("mouth openness shows no variation over time"),
			Confidence: 0.75,
		}
	}

	opennessScore := clamp01(metrics.MaxOpenness / 0.5)
	durationScore := clamp01(metrics.DurationMs / 250)
	score := clamp01(opennessScore*0.6 + durationScore*0.4)

	result := &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     "mouth-open-metrics",
		Confidence: 0.75,
	}
	if !result.Verified {
		result.Reason = utils.GetStringPointer("mouth opening too shallow or too brief")
	}
	return result
}

// SequenceVerifier scores an ordered multi-challenge run. It is the strongest
// evidence class offered.
type SequenceVerifier struct{}

func (sv *SequenceVerifier) Verify(proof *LivenessProof) *LivenessResult {
	steps := proof.SequenceSteps
	if len(steps) == 0 {
		return missingTelemetry("sequence requires completed challenge steps")
	}

	ordered := sort.SliceIsSorted(steps, func(i, j int) bool {
		return steps[i].CompletedAtMs < steps[j].CompletedAtMs
	})
	if !ordered {
		return &LivenessResult{
			Verified:   false,
			Method:     "challenge-sequence",
			Reason:     utils.GetStringPointer("challenge steps completed out of order"),
			Confidence: 0.95,
		}
	}

	var total float64
	for _, step := range steps {
		total += clamp01(step.Score)
	}
	mean := total / float64(len(steps))

	// Completeness rewards longer sequences; three steps is a full run.
	completeness := clamp01(float64(len(steps)) / 3)
	score := clamp01(mean * completeness)

	result := &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     "challenge-sequence",
		Confidence: 0.95,
		Details: map[string]any{
			"stepCount":    len(steps),
			"meanScore":    mean,
			"completeness": completeness,
		},
	}
	if !result.Verified {
		result.Reason = utils.GetStringPointer("sequence steps scored below the liveness requirement")
	}
	return result
}

// GenericPresenceVerifier handles proofs with no specific challenge. It pools
// whatever telemetry is present, discounts the score and caps confidence so a
// generic proof can support a health probe but never a strong claim.
type GenericPresenceVerifier struct{}

func (gv *GenericPresenceVerifier) Verify(proof *LivenessProof) *LivenessResult {
	var total, count float64
	if len(proof.EyeStateSequence) >= 3 {
		inner := (&BlinkVerifier{}).verifySequence(proof.EyeStateSequence)
		total += inner.Score
		count++
	}
	if proof.ExpressionMetrics != nil {
		inner := (&SmileVerifier{}).Verify(proof)
		total += inner.Score
		count++
	}
	if len(proof.HeadPoseSequence) >= 3 {
		inner := (&HeadTurnVerifier{}).Verify(proof)
		total += inner.Score
		count++
	}
	if proof.MouthMetrics != nil {
		inner := (&MouthOpenVerifier{}).Verify(proof)
		total += inner.Score
		count++
	}
	if count == 0 {
		if len(proof.ImageData) > 0 {
			return singleImageFallback("generic-single-image")
		}
		return missingTelemetry("no usable liveness telemetry supplied")
	}

	score := clamp01(total / count * 0.85)
	result := &LivenessResult{
		Verified:   score >= constants.MIN_LIVENESS_SCORE,
		Score:      score,
		Method:     "generic-presence",
		Confidence: 0.4,
	}
	if !result.Verified {
		result.Reason = utils.GetStringPointer("pooled telemetry below the liveness requirement")
	}
	return result
}

// singleImageFallback is the weakest rung of the evidence ladder. The hard
// score cap keeps a bare photo below every decision threshold.
func singleImageFallback(method string) *LivenessResult {
	return &LivenessResult{
		Verified:   false,
		Score:      0.5,
		Method:     method,
		Reason:     utils.GetStringPointer("a single image cannot demonstrate the requested action"),
		Confidence: 0.3,
		Details:    map[string]any{"reliability": "low"},
	}
}

func missingTelemetry(message string) *LivenessResult {
	return &LivenessResult{
		Verified:   false,
		Method:     "telemetry-missing",
		Reason:     utils.GetStringPointer(message),
		Confidence: 0.1,
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
