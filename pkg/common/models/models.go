package models

import (
	"time"
)

// Patient record models (RIPS-shaped input)

type Profile struct {
	Sex             string `json:"sex"`
	Age             int    `json:"age"`
	PayerRegime     string `json:"payer_regime"`
	AffiliationType string `json:"affiliation_type,omitempty"`
}

// CodedItem carries a raw clinical code. The embedded description is
// informational only; semantic expansion always goes through the
// terminology catalog.
type CodedItem struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

type ClinicalEvent struct {
	Date              string      `json:"date"`
	FacilityCode      string      `json:"facility_code"`
	ProviderSpecialty string      `json:"provider_specialty"`
	Diagnoses         []CodedItem `json:"diagnoses,omitempty"`
	Procedures        []CodedItem `json:"procedures,omitempty"`
	Medications       []CodedItem `json:"medications,omitempty"`
}

// PatientRecord is one subject's longitudinal claim history. Profile is a
// pointer so a missing "profile" key is distinguishable from an empty one.
type PatientRecord struct {
	ID      string          `json:"id"`
	Profile *Profile        `json:"profile"`
	Events  []ClinicalEvent `json:"events"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // claim, trajectory, analysis
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// RiskAssessment is the structured judgment returned by the
// narrative-generation collaborator. Partial marks a response whose JSON
// could not be fully parsed; Raw keeps the model output for auditing in
// that case.
type RiskAssessment struct {
	Risk        string `json:"risk"`
	FutureEvent string `json:"future_event"`
	CostTrend   string `json:"cost_trend"`
	Explanation string `json:"explanation"`
	Partial     bool   `json:"partial,omitempty"`
	Raw         string `json:"raw,omitempty"`
}

// Analysis API models

type AnalyzeRequest struct {
	Query   PatientRecord   `json:"query"`
	History []PatientRecord `json:"history,omitempty"`
}

type AnalyzeResponse struct {
	QueryID       string          `json:"query_id"`
	QuerySequence string          `json:"query_sequence"`
	MatchIndex    int             `json:"match_index"`
	MatchID       string          `json:"match_id,omitempty"`
	MatchSequence string          `json:"match_sequence,omitempty"`
	Score         float64         `json:"score"`
	HighRisk      bool            `json:"high_risk"`
	Assessment    *RiskAssessment `json:"assessment,omitempty"`
	Latency       time.Duration   `json:"latency"`
	HistorySize   int             `json:"history_size"`
}

type TrajectoryRequest struct {
	Record PatientRecord `json:"record"`
}

type TrajectoryResponse struct {
	PatientID  string `json:"patient_id,omitempty"`
	Sequence   string `json:"sequence"`
	TokenCount int    `json:"token_count"`
}
