package reading

import (
	"testing"

	"github.com/readlevel/backend/internal/models"
)

func TestComputeMatchScore(t *testing.T) {
	interests := models.GenreInterestMap{"fantasy": 4, "mystery": 1, "history": 2}

	tests := []struct {
		name string
		book models.Book
		want float64
	}{
		{"top score", models.Book{AmazonPopularity: 5, Genres: []string{"fantasy"}}, 1.0},
		{"unmapped genre is neutral", models.Book{AmazonPopularity: 4, Genres: []string{"poetry"}}, 0.6},
		{"mean across genres", models.Book{AmazonPopularity: 5, Genres: []string{"fantasy", "mystery"}}, 0.625},
		{"zero popularity", models.Book{AmazonPopularity: 0, Genres: []string{"fantasy"}}, 0},
		{"no genres", models.Book{AmazonPopularity: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeMatchScore(interests, tt.book); got != tt.want {
				t.Errorf("ComputeMatchScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeMatchScore_Monotonic(t *testing.T) {
	book := models.Book{Genres: []string{"fantasy"}}
	prev := -1.0
	for pop := 0.0; pop <= 5.0; pop += 0.5 {
		book.AmazonPopularity = pop
		got := ComputeMatchScore(models.GenreInterestMap{"fantasy": 2}, book)
		if got < prev {
			t.Fatalf("score fell from %v to %v at popularity %v", prev, got, pop)
		}
		prev = got
	}

	book.AmazonPopularity = 3
	prev = -1.0
	for level := models.MinGenreInterest; level <= models.MaxGenreInterest; level++ {
		got := ComputeMatchScore(models.GenreInterestMap{"fantasy": level}, book)
		if got < prev {
			t.Fatalf("score fell from %v to %v at interest %d", prev, got, level)
		}
		if got < 0 || got > MaxMatchScore {
			t.Errorf("score %v outside [0,1]", got)
		}
		prev = got
	}
}

func TestInterestFactor_Empty(t *testing.T) {
	if _, ok := InterestFactor(nil, nil); ok {
		t.Error("InterestFactor(no genres) ok = true")
	}
}
