package biometry

import "time"

type ChallengeType string

const (
	ChallengeBlink     ChallengeType = "blink"
	ChallengeSmile     ChallengeType = "smile"
	ChallengeHeadTurn  ChallengeType = "head-turn"
	ChallengeNod       ChallengeType = "nod"
	ChallengeMouthOpen ChallengeType = "mouth-open"
	ChallengeSequence  ChallengeType = "sequence"
	ChallengeGeneric   ChallengeType = "generic"
)

// EyeState is one frame of eye-openness telemetry. Openness is normalized to
// [0,1] where 1 is fully open.
type EyeState struct {
	TimestampMs int64   `json:"timestampMs"`
	Openness    float64 `json:"openness"`
}

// BlinkMetrics are device-side aggregates used when a full frame sequence is
// not available.
type BlinkMetrics struct {
	AvgEyeAspectRatio float64 `json:"avgEyeAspectRatio"`
	BlinkDurationMs   float64 `json:"blinkDurationMs"`
	TransitionSpeedMs float64 `json:"transitionSpeedMs"`
	BlinkCount        int     `json:"blinkCount"`
}

type HeadPose struct {
	TimestampMs int64   `json:"timestampMs"`
	Yaw         float64 `json:"yaw"`
	Pitch       float64 `json:"pitch"`
	Roll        float64 `json:"roll"`
}

type MouthMetrics struct {
	MaxOpenness float64 `json:"maxOpenness"`
	AvgOpenness float64 `json:"avgOpenness"`
	DurationMs  float64 `json:"durationMs"`
}

type ExpressionMetrics struct {
	SmileIntensity float64 `json:"smileIntensity"`
	SymmetryScore  float64 `json:"symmetryScore"`
	DurationMs     float64 `json:"durationMs"`
}

// SequenceStep records the completion of one sub-challenge inside a combined
// challenge run.
type SequenceStep struct {
	Challenge     ChallengeType `json:"challenge"`
	CompletedAtMs int64         `json:"completedAtMs"`
	Score         float64       `json:"score"`
}

type MotionSample struct {
	TimestampMs int64   `json:"timestampMs"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

type MotionData struct {
	Samples []MotionSample `json:"samples"`
}

// TextureData is capture-side texture telemetry, precomputed by the client
// pipeline alongside the raw image.
type TextureData struct {
	Variance       float64 `json:"variance"`
	EdgeDensity    float64 `json:"edgeDensity"`
	NoiseLevel     float64 `json:"noiseLevel"`
	DepthVariation float64 `json:"depthVariation"`
}

// LivenessProof is the input bundle for one liveness check. Challenge selects
// which telemetry fields are meaningful; ImageData/MotionData/TextureData are
// a shared envelope consumed by the anti-spoofing analyzers regardless of
// challenge. Nonce ties the proof back to an issued challenge and is consumed
// on first use.
type LivenessProof struct {
	Challenge         ChallengeType      `json:"challenge" validate:"omitempty,challenge"`
	Nonce             string             `json:"nonce,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
	ImageData         []byte             `json:"imageData,omitempty"`
	MotionData        *MotionData        `json:"motionData,omitempty"`
	TextureData       *TextureData       `json:"textureData,omitempty"`
	EyeStateSequence  []EyeState         `json:"eyeStateSequence,omitempty"`
	BlinkMetrics      *BlinkMetrics      `json:"blinkMetrics,omitempty"`
	HeadPoseSequence  []HeadPose         `json:"headPoseSequence,omitempty"`
	MouthMetrics      *MouthMetrics      `json:"mouthMetrics,omitempty"`
	ExpressionMetrics *ExpressionMetrics `json:"expressionMetrics,omitempty"`
	SequenceSteps     []SequenceStep     `json:"sequenceSteps,omitempty"`
}

type LivenessResult struct {
	Verified   bool           `json:"verified"`
	Score      float64        `json:"score"`
	Method     string         `json:"method"`
	Reason     *string        `json:"reason,omitempty"`
	Confidence float64        `json:"confidence"`
	Details    map[string]any `json:"details,omitempty"`
}

type TextureAnalysis struct {
	IsRealFace            bool    `json:"isRealFace"`
	Confidence            float64 `json:"confidence"`
	TextureScore          float64 `json:"textureScore"`
	NoisePatternScore     float64 `json:"noisePatternScore"`
	DepthConsistencyScore float64 `json:"depthConsistencyScore"`
}

type MotionAnalysis struct {
	IsNaturalMotion          bool    `json:"isNaturalMotion"`
	Confidence               float64 `json:"confidence"`
	MicroMovementScore       float64 `json:"microMovementScore"`
	AccelerationPatternScore float64 `json:"accelerationPatternScore"`
}

type SpoofAssessment struct {
	IsSpoofDetected bool           `json:"isSpoofDetected"`
	Confidence      float64        `json:"confidence"`
	Reason          *string        `json:"reason,omitempty"`
	Details         map[string]any `json:"details,omitempty"`
}

// VerificationOutcome is returned to the caller of Verify. Reasons is only
// populated on failure.
type VerificationOutcome struct {
	Verified       bool      `json:"verified"`
	Score          float64   `json:"score"`
	FaceMatchScore float64   `json:"faceMatchScore"`
	LivenessScore  float64   `json:"livenessScore"`
	SecurityScore  float64   `json:"securityScore"`
	Confidence     float64   `json:"confidence"`
	Method         string    `json:"method"`
	Timestamp      time.Time `json:"timestamp"`
	Reasons        []string  `json:"reasons,omitempty"`
}

const (
	ReasonLivenessFailed  = "liveness_verification_failed"
	ReasonFaceMatchFailed = "face_matching_failed"
	ReasonTextureFailed   = "texture_analysis_failed"
)

// Strategy interfaces. Default implementations are heuristic; a deployment
// backed by real model inference substitutes these without touching the
// orchestration logic.
type DescriptorScorer interface {
	Score(a, b []float64) (float64, error)
}

type TextureAnalyzer interface {
	Analyze(imageData []byte) *TextureAnalysis
}

type MotionAnalyzer interface {
	Analyze(motion *MotionData) *MotionAnalysis
}

type ChallengeVerifier interface {
	Verify(proof *LivenessProof) *LivenessResult
}
