package reading

import "github.com/readlevel/backend/internal/models"

// MaxMatchScore is reached by a 5-star book in genres the student loves.
const MaxMatchScore = 1.0

// InterestFactor is the mean interest level over the book's genres, with
// unmapped genres counted as neutral. ok is false for a book without genres.
func InterestFactor(interests models.GenreInterestMap, genres []string) (factor float64, ok bool) {
	if len(genres) == 0 {
		return 0, false
	}
	var sum int
	for _, g := range genres {
		sum += interests.Level(g)
	}
	return float64(sum) / float64(len(genres)), true
}

// ComputeMatchScore blends popularity in [0,5] with genre interest in [1,4]
// into a score in [0,1]. A book with no genres scores 0; callers that rank
// books should skip those instead of relying on the zero.
func ComputeMatchScore(interests models.GenreInterestMap, book models.Book) float64 {
	factor, ok := InterestFactor(interests, book.Genres)
	if !ok {
		return 0
	}
	return book.AmazonPopularity * factor / 20.0
}
