package usecase

import "AnalystCouncil/internal/domain/models"

// CountSuccesses tallies the experts whose analysis completed with a
// non-empty payload.
func CountSuccesses(results []models.AnalysisResult) int {
	n := 0
	for _, r := range results {
		if r.OK {
			n++
		}
	}
	return n
}

// Gate decides what happens after the join. Zero successes means there
// is nothing to report at all; below the threshold the individual
// analyses stand on their own; at or above it the chairman synthesizes.
// The decision depends only on the success count and the threshold.
func Gate(successes, threshold int) models.GateDecision {
	switch {
	case successes == 0:
		return models.DecisionNone
	case successes >= threshold:
		return models.DecisionSynthesize
	default:
		return models.DecisionIndividualOnly
	}
}
