package biometry

import "veridoc.mx/application/constants"

// RiskContext carries the per-request signals that raise the bar for a match.
type RiskContext struct {
	RecentFailures   int
	IPChanged        bool
	UserAgentChanged bool
	CandidateScore   float64
}

// ComputeRiskFactor folds the context into a single factor in [0,1]. Failure
// history dominates; device and network drift add smaller increments.
func ComputeRiskFactor(ctx RiskContext) float64 {
	failureRatio := float64(ctx.RecentFailures) / float64(constants.MAX_FAILED_ATTEMPTS)
	if failureRatio > 1 {
		failureRatio = 1
	}

	risk := failureRatio * 0.5
	if ctx.IPChanged {
		risk += 0.2
	}
	if ctx.UserAgentChanged {
		risk += 0.15
	}
	if ctx.CandidateScore < 0.5 {
		risk += 0.15
	}
	return clamp01(risk)
}

// AdjustedThreshold scales the base acceptance threshold by the risk factor.
// The scaling is multiplicative so a custom per-record threshold keeps its
// proportional relationship to risk.
func AdjustedThreshold(base, riskFactor float64) float64 {
	return base * (1 + clamp01(riskFactor)*constants.RISK_SENSITIVITY)
}
