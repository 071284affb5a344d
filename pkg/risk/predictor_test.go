package risk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseAssessmentCleanJSON(t *testing.T) {
	content := `{"riesgo": "alto", "evento_futuro": "Diálisis", "costo_tendencia": "Creciente", "explicacion": "Progresión renal"}`

	assessment := ParseAssessment(content)
	if assessment.Risk != "ALTO" {
		t.Fatalf("expected risk ALTO, got %q", assessment.Risk)
	}
	if assessment.FutureEvent != "Diálisis" || assessment.CostTrend != "Creciente" {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
	if assessment.Partial {
		t.Fatal("expected complete assessment")
	}
}

func TestParseAssessmentToleratesFencesAndProse(t *testing.T) {
	content := "Claro, aquí está el análisis:\n```json\n{\"riesgo\": \"MEDIO\", \"evento_futuro\": \"Control\", \"costo_tendencia\": \"Estable\", \"explicacion\": \"Seguimiento adecuado\"}\n```"

	assessment := ParseAssessment(content)
	if assessment.Risk != "MEDIO" {
		t.Fatalf("expected risk MEDIO, got %q", assessment.Risk)
	}
	if assessment.Partial {
		t.Fatal("expected complete assessment despite fences")
	}
}

func TestParseAssessmentMalformedMarksPartial(t *testing.T) {
	content := "no puedo responder en JSON"

	assessment := ParseAssessment(content)
	if !assessment.Partial {
		t.Fatal("expected partial assessment")
	}
	if assessment.Risk != "DESCONOCIDO" {
		t.Fatalf("expected risk DESCONOCIDO, got %q", assessment.Risk)
	}
	if assessment.Raw != content {
		t.Fatal("expected raw content preserved")
	}
}

func TestParseAssessmentMissingRiskMarksPartial(t *testing.T) {
	content := `{"evento_futuro": "UCI"}`

	assessment := ParseAssessment(content)
	if !assessment.Partial || assessment.Risk != "DESCONOCIDO" {
		t.Fatalf("expected partial DESCONOCIDO assessment, got %+v", assessment)
	}
}

func TestBuildPromptCarriesBothSequences(t *testing.T) {
	prompt := buildPrompt("SEQ_QUERY", "SEQ_MATCH")
	if !strings.Contains(prompt, "SEQ_QUERY") || !strings.Contains(prompt, "SEQ_MATCH") {
		t.Fatal("expected both sequences in prompt")
	}
	if !strings.Contains(prompt, "JSON") {
		t.Fatal("expected JSON response instruction in prompt")
	}
}

func TestPredictParsesCompletionResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"content": `{"riesgo": "BAJO", "evento_futuro": "Control ambulatorio", "costo_tendencia": "Estable", "explicacion": "Adherencia alta"}`,
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	predictor := NewPredictor(server.URL, "test-model", "", 5*time.Second)
	assessment, err := predictor.Predict(context.Background(), "QUERY", "MATCH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.Risk != "BAJO" || assessment.Partial {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
}

func TestPredictSurfacesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	predictor := NewPredictor(server.URL, "test-model", "", 5*time.Second)
	if _, err := predictor.Predict(context.Background(), "QUERY", "MATCH"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
