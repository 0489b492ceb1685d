package biometry

import (
	"math"

	"github.com/montanaflynn/stats"
	"veridoc.mx/application/utils"
)

// HeuristicTextureAnalyzer inspects the raw image byte stream for the flat
// texture, suppressed noise and missing depth cues characteristic of printed
// photos and screen replays. It is the default TextureAnalyzer; a model-backed
// implementation can replace it without touching orchestration.
type HeuristicTextureAnalyzer struct{}

func (ta *HeuristicTextureAnalyzer) Analyze(imageData []byte) *TextureAnalysis {
	if len(imageData) < 64 {
		// No usable image evidence. Low confidence, and never a pass: texture
		// is a mandatory gate on verification.
		return &TextureAnalysis{
			IsRealFace: false,
			Confidence: 0.2,
		}
	}

	textureScore := byteVarianceScore(imageData)
	noiseScore := neighborNoiseScore(imageData)
	depthScore := blockSpreadScore(imageData)

	combined := textureScore*0.4 + noiseScore*0.35 + depthScore*0.25

	return &TextureAnalysis{
		IsRealFace:            combined >= 0.45,
		Confidence:            clamp01(0.5 + combined/2),
		TextureScore:          textureScore,
		NoisePatternScore:     noiseScore,
		DepthConsistencyScore: depthScore,
	}
}

// byteVarianceScore measures global intensity spread. Prints and screens
// compress dynamic range.
func byteVarianceScore(data []byte) float64 {
	values := make([]float64, len(data))
	for i, b := range data {
		values[i] = float64(b)
	}
	variance, err := stats.PopulationVariance(values)
	if err != nil {
		return 0
	}
	return clamp01(variance / 3000)
}

// neighborNoiseScore measures sensor-noise level via mean absolute neighbor
// difference. A recaptured image loses high-frequency noise.
func neighborNoiseScore(data []byte) float64 {
	var total float64
	for i := 1; i < len(data); i++ {
		total += math.Abs(float64(data[i]) - float64(data[i-1]))
	}
	mean := total / float64(len(data)-1)
	return clamp01(mean / 48)
}

// blockSpreadScore measures variance across coarse blocks as a stand-in for
// depth cues: a flat reproduction has uniform blocks, a real face scene does
// not.
func blockSpreadScore(data []byte) float64 {
	const blocks = 16
	blockSize := len(data) / blocks
	if blockSize == 0 {
		return 0
	}
	means := make([]float64, 0, blocks)
	for i := 0; i < blocks; i++ {
		var sum float64
		for _, b := range data[i*blockSize : (i+1)*blockSize] {
			sum += float64(b)
		}
		means = append(means, sum/float64(blockSize))
	}
	spread, err := stats.PopulationVariance(means)
	if err != nil {
		return 0
	}
	return clamp01(spread / 900)
}

// NaturalMotionAnalyzer detects the unnaturally smooth or absent
// micro-movement of a static photo held in front of a camera.
type NaturalMotionAnalyzer struct{}

func (ma *NaturalMotionAnalyzer) Analyze(motion *MotionData) *MotionAnalysis {
	if motion == nil || len(motion.Samples) < 4 {
		return &MotionAnalysis{
			IsNaturalMotion: false,
			Confidence:      0.25,
		}
	}

	magnitudes := make([]float64, len(motion.Samples))
	for i, s := range motion.Samples {
		magnitudes[i] = math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	}

	// Living subjects produce constant low-amplitude jitter. Zero movement is
	// a mounted photo; violent movement is a waved one.
	stdDev, err := stats.StandardDeviationPopulation(magnitudes)
	if err != nil {
		return &MotionAnalysis{IsNaturalMotion: false, Confidence: 0.25}
	}
	microMovement := bandScore(stdDev, 0.02, 1.5)

	// Natural acceleration changes direction irregularly. Measure jerk
	// variability between consecutive samples.
	jerks := make([]float64, 0, len(magnitudes)-1)
	for i := 1; i < len(magnitudes); i++ {
		jerks = append(jerks, math.Abs(magnitudes[i]-magnitudes[i-1]))
	}
	jerkStdDev, err := stats.StandardDeviationPopulation(jerks)
	if err != nil {
		jerkStdDev = 0
	}
	accelerationPattern := bandScore(jerkStdDev, 0.01, 1.0)

	combined := microMovement*0.6 + accelerationPattern*0.4
	confidence := clamp01(0.4 + float64(len(motion.Samples))/40)

	return &MotionAnalysis{
		IsNaturalMotion:          combined >= 0.5,
		Confidence:               confidence,
		MicroMovementScore:       microMovement,
		AccelerationPatternScore: accelerationPattern,
	}
}

// SpoofDetector fuses texture, motion and capture telemetry into a single
// spoof assessment. It runs before challenge verification and its verdict
// takes precedence over any challenge score.
type SpoofDetector struct {
	Texture TextureAnalyzer
	Motion  MotionAnalyzer
}

func (sd *SpoofDetector) Assess(proof *LivenessProof) *SpoofAssessment {
	details := map[string]any{}
	var spoofEvidence, evidenceWeight float64
	var reason *string

	if len(proof.ImageData) > 0 {
		texture := sd.Texture.Analyze(proof.ImageData)
		details["textureScore"] = texture.TextureScore
		details["noisePatternScore"] = texture.NoisePatternScore
		details["depthConsistencyScore"] = texture.DepthConsistencyScore
		if !texture.IsRealFace {
			spoofEvidence += texture.Confidence * 0.5
			reason = utils.GetStringPointer("texture analysis indicates a reproduced image")
		}
		evidenceWeight += texture.Confidence * 0.5
	}

	motionAnalysis := sd.Motion.Analyze(proof.MotionData)
	details["microMovementScore"] = motionAnalysis.MicroMovementScore
	details["accelerationPatternScore"] = motionAnalysis.AccelerationPatternScore
	if proof.MotionData != nil && !motionAnalysis.IsNaturalMotion {
		spoofEvidence += motionAnalysis.Confidence * 0.35
		if reason == nil {
			reason = utils.GetStringPointer("motion pattern is not consistent with a live subject")
		}
	}
	if proof.MotionData != nil {
		evidenceWeight += motionAnalysis.Confidence * 0.35
	}

	if proof.TextureData != nil {
		// Client-side capture telemetry is weak evidence on its own but
		// corroborates the other layers.
		telemetryScore := clamp01(proof.TextureData.Variance*0.4 +
			proof.TextureData.EdgeDensity*0.3 +
			proof.TextureData.NoiseLevel*0.15 +
			proof.TextureData.DepthVariation*0.15)
		details["captureTelemetryScore"] = telemetryScore
		if telemetryScore < 0.3 {
			spoofEvidence += 0.15
			if reason == nil {
				reason = utils.GetStringPointer("capture telemetry indicates a flat scene")
			}
		}
		evidenceWeight += 0.15
	}

	confidence := clamp01(evidenceWeight)
	detected := spoofEvidence >= 0.35 && confidence >= 0.3
	if !detected {
		reason = nil
	}

	return &SpoofAssessment{
		IsSpoofDetected: detected,
		Confidence:      confidence,
		Reason:          reason,
		Details:         details,
	}
}

// bandScore maps value into [0,1]: 1 inside [lo,hi], decaying linearly to 0
// outside the band.
func bandScore(value, lo, hi float64) float64 {
	if value >= lo && value <= hi {
		return 1
	}
	if value < lo {
		if lo == 0 {
			return 0
		}
		return clamp01(value / lo)
	}
	return clamp01(1 - (value-hi)/hi)
}
