package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comet-col/platform/pkg/common/models"
)

// Predictor asks a language model to judge the cost/deterioration risk of
// a patient trajectory given its closest historical neighbour. The model's
// reasoning is opaque; only the JSON contract matters here. Malformed
// output degrades to a partial assessment instead of an error, so the
// unreliable parsing step never poisons the deterministic pipeline.
type Predictor struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
}

func NewPredictor(baseURL, modelName, apiKey string, timeout time.Duration) *Predictor {
	return &Predictor{
		apiKey:     apiKey,
		baseURL:    baseURL,
		modelName:  modelName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Predict returns the model's risk judgment for querySequence against
// matchedSequence. Transport failures are errors; parse failures are not.
func (p *Predictor) Predict(ctx context.Context, querySequence, matchedSequence string) (models.RiskAssessment, error) {
	content, err := p.callLLM(ctx, buildPrompt(querySequence, matchedSequence))
	if err != nil {
		return models.RiskAssessment{}, err
	}
	return ParseAssessment(content), nil
}

func buildPrompt(querySequence, matchedSequence string) string {
	return fmt.Sprintf(`Eres CoMET-Col, experto en riesgo salud Colombia.

PACIENTE ACTUAL (Tokens): %s
HISTORIA SIMILAR (Tokens): %s

Predice riesgo de Alto Costo (Diálisis/UCI) en 6 meses.
Responde ÚNICAMENTE en JSON válido con este formato:
{ "riesgo": "ALTO/MEDIO/BAJO", "evento_futuro": "string", "costo_tendencia": "string", "explicacion": "string" }`,
		querySequence, matchedSequence)
}

// ParseAssessment extracts the structured judgment from raw model output.
// Code fences and surrounding prose are tolerated. When the JSON cannot be
// recovered, or the risk field is absent, the assessment is marked Partial
// and the raw content is preserved for the caller to audit.
func ParseAssessment(content string) models.RiskAssessment {
	var parsed struct {
		Risk        string `json:"riesgo"`
		FutureEvent string `json:"evento_futuro"`
		CostTrend   string `json:"costo_tendencia"`
		Explanation string `json:"explicacion"`
	}

	candidate := extractJSON(content)
	if candidate == "" || json.Unmarshal([]byte(candidate), &parsed) != nil {
		return models.RiskAssessment{
			Risk:    "DESCONOCIDO",
			Partial: true,
			Raw:     content,
		}
	}

	assessment := models.RiskAssessment{
		Risk:        strings.ToUpper(strings.TrimSpace(parsed.Risk)),
		FutureEvent: parsed.FutureEvent,
		CostTrend:   parsed.CostTrend,
		Explanation: parsed.Explanation,
	}
	if assessment.Risk == "" {
		assessment.Risk = "DESCONOCIDO"
		assessment.Partial = true
		assessment.Raw = content
	}
	return assessment
}

// extractJSON returns the outermost brace-delimited slice of content.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return content[start : end+1]
}

func (p *Predictor) callLLM(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": p.modelName,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return result.Choices[0].Message.Content, nil
}
