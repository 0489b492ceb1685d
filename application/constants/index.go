package constants

import (
	"os"
	"strconv"
)

// veridoc response codes
// these consist of 4 digit numbers
//
// the 1st 3 are randomly generated but represent specific scenarios
// 4th indicates if the response requires user interaction through a dialog box. 0 means it does not require. 1 means it requires.

var BIOMETRIC_NOT_REGISTERED uint = 4310 // take the user to the biometric enrollment page
var BIOMETRIC_TEMPORARY_LOCK uint = 4521 // display the cooldown dialog before allowing a retry
var LIVENESS_CHECK_FAILED uint = 4730    // prompt the user to redo the liveness challenge

// Fusion weights for the final verification score. Proportions are part of
// the decision contract: identity match matters most, but any single weak
// signal drags the score down. Values are untuned placeholders pending
// calibration against production traffic.
var (
	WEIGHT_FACE_MATCH  = 0.40
	WEIGHT_LIVENESS    = 0.25
	WEIGHT_TEXTURE     = 0.15
	WEIGHT_MOTION      = 0.10
	WEIGHT_CONSISTENCY = 0.10
)

// Decision thresholds. Untuned placeholders, overridable from env.
var (
	BASE_MATCH_THRESHOLD  = 0.6
	MIN_LIVENESS_SCORE    = 0.75
	RISK_SENSITIVITY      = 0.2
	MAX_FAILED_ATTEMPTS   = 5
	LOCK_DURATION_MINUTES = 30
	ANOMALY_LOW_SCORE     = 0.3
	ANOMALY_HIGH_LIVENESS = 0.7
	LAST_SCORES_WINDOW    = 10
	DESCRIPTOR_LENGTH     = 128
)

var SUPPORT_EMAIL = "seguridad@veridoc.mx"

// LoadOverrides replaces the tunable decision constants with env-supplied
// values where present. Called once at startup, before any request is served.
func LoadOverrides() {
	BASE_MATCH_THRESHOLD = floatEnv("BIOMETRY_BASE_THRESHOLD", BASE_MATCH_THRESHOLD)
	MIN_LIVENESS_SCORE = floatEnv("BIOMETRY_MIN_LIVENESS_SCORE", MIN_LIVENESS_SCORE)
	RISK_SENSITIVITY = floatEnv("BIOMETRY_RISK_SENSITIVITY", RISK_SENSITIVITY)
	MAX_FAILED_ATTEMPTS = intEnv("BIOMETRY_MAX_FAILED_ATTEMPTS", MAX_FAILED_ATTEMPTS)
	LOCK_DURATION_MINUTES = intEnv("BIOMETRY_LOCK_DURATION_MINUTES", LOCK_DURATION_MINUTES)
}

func floatEnv(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
