package pipeline

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/comet-col/platform/pkg/common/logger"
	"github.com/comet-col/platform/pkg/common/models"
	"github.com/comet-col/platform/pkg/terminology"
	"github.com/comet-col/platform/pkg/trajectory"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// stubEmbedder maps sequences to fixed vectors and counts calls so tests
// can observe cache behavior.
type stubEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	s.calls++
	if vector, ok := s.vectors[text]; ok {
		return vector, nil
	}
	return []float64{0, 1}, nil
}

type stubAssessor struct {
	assessment models.RiskAssessment
	calls      int
}

func (s *stubAssessor) Predict(ctx context.Context, querySequence, matchedSequence string) (models.RiskAssessment, error) {
	s.calls++
	return s.assessment, nil
}

type memCache struct {
	entries map[string][]float64
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]float64)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]float64, bool) {
	vector, ok := c.entries[key]
	return vector, ok
}

func (c *memCache) Set(ctx context.Context, key string, vector []float64) {
	c.entries[key] = vector
}

func testRecord(id, sex string, age int) models.PatientRecord {
	return models.PatientRecord{
		ID:      id,
		Profile: &models.Profile{Sex: sex, Age: age, PayerRegime: "Contributivo"},
		Events: []models.ClinicalEvent{
			{Date: "2024-01-10", FacilityCode: "A", ProviderSpecialty: "MED_GENERAL",
				Diagnoses: []models.CodedItem{{Code: "E119"}}},
		},
	}
}

func newTestAnalyzer(embedder Embedder, assessor Assessor, cache VectorCache) *Analyzer {
	builder := trajectory.NewBuilder(terminology.DefaultCatalog())
	return NewAnalyzer(builder, embedder, assessor, cache, "test-v1", 0.8)
}

func TestAnalyzeFindsClosestMatch(t *testing.T) {
	builder := trajectory.NewBuilder(terminology.DefaultCatalog())
	query := testRecord("PT_Q", "M", 55)
	near := testRecord("PT_NEAR", "M", 55)
	far := testRecord("PT_FAR", "F", 20)

	querySeq, err := builder.Build(query)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nearSeq, _ := builder.Build(near)
	farSeq, _ := builder.Build(far)

	embedder := &stubEmbedder{vectors: map[string][]float64{
		querySeq: {1, 0},
		nearSeq:  {0.99, math.Sqrt(1 - 0.99*0.99)},
		farSeq:   {0, 1},
	}}
	assessor := &stubAssessor{assessment: models.RiskAssessment{Risk: "ALTO"}}

	analyzer := newTestAnalyzer(embedder, assessor, nil)
	response, err := analyzer.Analyze(context.Background(), query, []models.PatientRecord{far, near})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if response.MatchIndex != 1 || response.MatchID != "PT_NEAR" {
		t.Fatalf("expected PT_NEAR at index 1, got %s at %d", response.MatchID, response.MatchIndex)
	}
	if !response.HighRisk {
		t.Fatalf("expected high-risk flag for score %f", response.Score)
	}
	if response.Assessment == nil || response.Assessment.Risk != "ALTO" {
		t.Fatalf("expected assessment to be attached, got %+v", response.Assessment)
	}
	if assessor.calls != 1 {
		t.Fatalf("expected one assessment call, got %d", assessor.calls)
	}
	if response.HistorySize != 2 {
		t.Fatalf("expected history size 2, got %d", response.HistorySize)
	}
}

func TestAnalyzeEmptyHistoryReturnsSentinel(t *testing.T) {
	embedder := &stubEmbedder{}
	assessor := &stubAssessor{}
	analyzer := newTestAnalyzer(embedder, assessor, nil)

	response, err := analyzer.Analyze(context.Background(), testRecord("PT_Q", "M", 55), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.MatchIndex != -1 || response.Score != 0.0 {
		t.Fatalf("expected sentinel match, got index %d score %f", response.MatchIndex, response.Score)
	}
	if response.Assessment != nil {
		t.Fatal("expected no assessment without a match")
	}
	if assessor.calls != 0 {
		t.Fatalf("expected no assessment calls, got %d", assessor.calls)
	}
}

func TestAnalyzeSkipsMalformedHistoryRecords(t *testing.T) {
	embedder := &stubEmbedder{}
	analyzer := newTestAnalyzer(embedder, nil, nil)

	broken := testRecord("PT_BROKEN", "F", 40)
	broken.Events[0].Date = "not-a-date"
	good := testRecord("PT_GOOD", "M", 55)

	response, err := analyzer.Analyze(context.Background(), testRecord("PT_Q", "M", 55),
		[]models.PatientRecord{broken, good})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.HistorySize != 1 {
		t.Fatalf("expected the malformed record to be skipped, history size %d", response.HistorySize)
	}
	if response.MatchID != "PT_GOOD" {
		t.Fatalf("expected PT_GOOD to match, got %s", response.MatchID)
	}
}

func TestAnalyzeMalformedQueryAborts(t *testing.T) {
	analyzer := newTestAnalyzer(&stubEmbedder{}, nil, nil)

	query := testRecord("PT_Q", "M", 55)
	query.Profile = nil
	if _, err := analyzer.Analyze(context.Background(), query, nil); err == nil {
		t.Fatal("expected error for malformed query record")
	}
}

func TestAnalyzeUsesVectorCache(t *testing.T) {
	embedder := &stubEmbedder{}
	cache := newMemCache()
	analyzer := newTestAnalyzer(embedder, nil, cache)

	query := testRecord("PT_Q", "M", 55)
	history := []models.PatientRecord{testRecord("PT_H", "F", 40)}

	if _, err := analyzer.Analyze(context.Background(), query, history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := embedder.calls

	if _, err := analyzer.Analyze(context.Background(), query, history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.calls != first {
		t.Fatalf("expected cached vectors to prevent re-embedding, calls went %d -> %d", first, embedder.calls)
	}
}

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("v1", "PACIENTE_SEXO:M")
	b := Fingerprint("v1", "PACIENTE_SEXO:M")
	if a != b {
		t.Fatal("expected identical inputs to fingerprint identically")
	}
	if Fingerprint("v2", "PACIENTE_SEXO:M") == a {
		t.Fatal("expected catalog version to change the fingerprint")
	}
	if Fingerprint("v1", "PACIENTE_SEXO:F") == a {
		t.Fatal("expected sequence to change the fingerprint")
	}
}
