package questions

import (
	"encoding/json"
	"math"
)

// Grade marks answers against qs position by position and returns a score in
// [0,100], rounded to the nearest integer. Callers must have validated every
// answer against its question first; an answer that fails to decode simply
// earns nothing.
func Grade(qs []Question, answers []json.RawMessage) int {
	if len(qs) == 0 {
		return 0
	}
	var correct float64
	for i, q := range qs {
		if i >= len(answers) || q.Definition == nil {
			continue
		}
		correct += q.Definition.Correctness(answers[i])
	}
	return int(math.Round(100 * correct / float64(len(qs))))
}
