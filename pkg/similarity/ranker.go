package similarity

import (
	"fmt"
	"math"
)

// Result identifies the closest candidate. Index -1 with score 0.0 means
// the candidate set was empty.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// DimensionMismatchError signals a pipeline contract violation: the
// embedding collaborator produced vectors of differing lengths.
type DimensionMismatchError struct {
	Index int
	Want  int
	Got   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("candidate %d has dimension %d, query has %d", e.Index, e.Got, e.Want)
}

// Rank returns the index and cosine-similarity score of the candidate
// closest to query. Ties break toward the lowest index. An empty candidate
// set is not an error and yields {-1, 0.0}.
func Rank(query []float64, candidates [][]float64) (Result, error) {
	if len(candidates) == 0 {
		return Result{Index: -1, Score: 0.0}, nil
	}

	best := Result{Index: 0, Score: math.Inf(-1)}
	for i, candidate := range candidates {
		if len(candidate) != len(query) {
			return Result{}, &DimensionMismatchError{Index: i, Want: len(query), Got: len(candidate)}
		}
		score := cosine(query, candidate)
		if score > best.Score {
			best = Result{Index: i, Score: score}
		}
	}
	return best, nil
}

// cosine returns dot(a,b)/(|a||b|), or 0.0 when either vector has zero
// norm. Inputs must be the same length.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
