package reading

import (
	"sort"

	"github.com/readlevel/backend/internal/models"
)

const (
	// CalibrationWindow is how many of the most recent reviews feed the
	// estimate. Fewer reviews than this leave the initial measure in place.
	CalibrationWindow = 3
	// NeutralComprehension leaves a book's measure unadjusted.
	NeutralComprehension = 4
	// ComprehensionStep is the lexile shift per comprehension point away
	// from neutral.
	ComprehensionStep = 50.0
)

// AdjustedSignal is the reading level a single review suggests.
func AdjustedSignal(r models.BookReview) float64 {
	return r.BookLexileMeasure + ComprehensionStep*float64(r.Comprehension-NeutralComprehension)
}

// ComputeCurrentLexileMeasure averages the adjusted signals of the three most
// recently submitted reviews. With fewer than three reviews it returns
// initial unchanged. reviews is not modified.
func ComputeCurrentLexileMeasure(initial float64, reviews []models.BookReview) float64 {
	if len(reviews) < CalibrationWindow {
		return initial
	}

	recent := make([]models.BookReview, len(reviews))
	copy(recent, reviews)
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].DateSubmitted.Equal(recent[j].DateSubmitted) {
			return recent[i].ID > recent[j].ID
		}
		return recent[i].DateSubmitted.After(recent[j].DateSubmitted)
	})

	var sum float64
	for _, r := range recent[:CalibrationWindow] {
		sum += AdjustedSignal(r)
	}
	return sum / CalibrationWindow
}
