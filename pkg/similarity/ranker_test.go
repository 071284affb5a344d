package similarity

import (
	"errors"
	"math"
	"testing"
)

// unitVector returns a 2-d unit vector whose cosine similarity against
// [1, 0] equals sim.
func unitVector(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func TestRankEmptyCandidates(t *testing.T) {
	result, err := Rank([]float64{1, 0, 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Index != -1 || result.Score != 0.0 {
		t.Fatalf("expected sentinel result, got %+v", result)
	}
}

func TestRankTieBreaksOnFirstOccurrence(t *testing.T) {
	query := []float64{1, 0}
	candidates := [][]float64{
		unitVector(0.5),
		unitVector(0.9),
		unitVector(0.9),
		unitVector(0.2),
	}

	result, err := Rank(query, candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Index != 1 {
		t.Fatalf("expected first occurrence of maximum (index 1), got %d", result.Index)
	}
	if math.Abs(result.Score-0.9) > 1e-9 {
		t.Fatalf("expected score 0.9, got %f", result.Score)
	}
}

func TestRankIdenticalVectorScoresOne(t *testing.T) {
	query := []float64{0.3, -1.2, 4.5}
	candidates := [][]float64{
		{1, 1, 1},
		{0.3, -1.2, 4.5},
	}

	result, err := Rank(query, candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Index != 1 {
		t.Fatalf("expected index 1, got %d", result.Index)
	}
	if math.Abs(result.Score-1.0) > 1e-12 {
		t.Fatalf("expected similarity 1.0, got %f", result.Score)
	}
}

func TestRankZeroNormCandidateScoresZero(t *testing.T) {
	query := []float64{1, 0}
	result, err := Rank(query, [][]float64{
		{0, 0},
		unitVector(0.4),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Index != 1 {
		t.Fatalf("expected non-degenerate candidate to win, got %d", result.Index)
	}

	// All-zero candidates still produce a defined result.
	result, err = Rank(query, [][]float64{{0, 0}, {0, 0}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Index != 0 || result.Score != 0.0 {
		t.Fatalf("expected index 0 with score 0.0, got %+v", result)
	}
}

func TestRankDimensionMismatchFails(t *testing.T) {
	_, err := Rank([]float64{1, 0}, [][]float64{
		{0.5, 0.5},
		{0.1, 0.2, 0.3},
	})
	var mismatch *DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if mismatch.Index != 1 || mismatch.Want != 2 || mismatch.Got != 3 {
		t.Fatalf("unexpected mismatch details: %+v", mismatch)
	}
}

func TestRankScoreWithinCosineRange(t *testing.T) {
	query := []float64{1, 0}
	result, err := Rank(query, [][]float64{{-3, 0}, {-1, -1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score < -1 || result.Score > 1 {
		t.Fatalf("score outside [-1,1]: %f", result.Score)
	}
}
