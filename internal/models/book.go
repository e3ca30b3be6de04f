package models

import "time"

type Book struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	Description      string    `json:"description,omitempty"`
	LexileMeasure    float64   `json:"lexile_measure"`
	AmazonPopularity float64   `json:"amazon_popularity"`
	Genres           []string  `json:"genres"`
	CreatedAt        time.Time `json:"created_at"`
}

// GenreInterestMap maps a genre to a student's interest level in [1,4].
type GenreInterestMap map[string]int

const (
	MinGenreInterest     = 1
	MaxGenreInterest     = 4
	NeutralGenreInterest = 3
)

// Level returns the interest for genre, or the neutral level when unmapped.
func (m GenreInterestMap) Level(genre string) int {
	if v, ok := m[genre]; ok {
		return v
	}
	return NeutralGenreInterest
}

type CreateBookRequest struct {
	Title            string   `json:"title"`
	Author           string   `json:"author"`
	Description      string   `json:"description"`
	LexileMeasure    float64  `json:"lexile_measure"`
	AmazonPopularity float64  `json:"amazon_popularity"`
	Genres           []string `json:"genres"`
}
