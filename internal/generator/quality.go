package generator

import "github.com/readlevel/backend/internal/questions"

// unverifiedAgreement stands in for the agreement rate when a draft was not
// verified.
const unverifiedAgreement = 0.5

// ComputeQualityScore calculates a composite quality score (0.0-1.0).
//
// Formula: validity * 0.40 + verification agreement * 0.40 + type variety * 0.20
func ComputeQualityScore(accepted, drafted, variety int, v *Verification) float64 {
	if drafted == 0 {
		return 0
	}
	validity := float64(accepted) / float64(drafted)

	agreement := unverifiedAgreement
	if v != nil && v.Checked > 0 {
		agreement = v.AgreementRate()
	}

	if variety > 3 {
		variety = 3
	}
	varietyScore := float64(variety) / 3

	return validity*0.40 + agreement*0.40 + varietyScore*0.20
}

// ClassifyQuality returns a classification based on the quality score.
// Returns: "reject" (< 0.50), "flagged" (0.50-0.70), "passed" (> 0.70)
func ClassifyQuality(score float64) string {
	if score < 0.50 {
		return "reject"
	}
	if score <= 0.70 {
		return "flagged"
	}
	return "passed"
}

// typeVariety counts the distinct question types in qs.
func typeVariety(qs []questions.Question) int {
	seen := map[questions.Type]bool{}
	for _, q := range qs {
		seen[q.Type] = true
	}
	return len(seen)
}
