package dto

import (
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/recognition"
)

type RecognitionFieldResponse struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type RecognitionResponse struct {
	Backend string                              `json:"backend"`
	Text    string                              `json:"text"`
	HTML    string                              `json:"html"`
	Fields  map[string]RecognitionFieldResponse `json:"fields,omitempty"`
}

type CandidateResponse struct {
	FileRef       string  `json:"file_ref"`
	DetectedType  string  `json:"detected_type"`
	ConfirmedType string  `json:"confirmed_type"`
	Amount        string  `json:"amount"`
	Vendor        string  `json:"vendor,omitempty"`
	Date          string  `json:"date,omitempty"`
	Confidence    float64 `json:"confidence"`
	NeedsReview   bool    `json:"needs_review"`
}

// UploadResponse returns the recognition output and the ephemeral candidates
// awaiting operator confirmation. Nothing here is persisted yet except the
// stored receipt file.
type UploadResponse struct {
	FileRef     string              `json:"file_ref"`
	Recognition RecognitionResponse `json:"recognition"`
	Candidates  []CandidateResponse `json:"candidates"`
}

func ToRecognitionResponse(r *recognition.Result) RecognitionResponse {
	resp := RecognitionResponse{
		Backend: string(r.Backend),
		Text:    r.Text,
		HTML:    r.HTML,
	}
	if len(r.Fields) > 0 {
		resp.Fields = make(map[string]RecognitionFieldResponse, len(r.Fields))
		for name, f := range r.Fields {
			resp.Fields[name] = RecognitionFieldResponse{Value: f.Value, Confidence: f.Confidence}
		}
	}
	return resp
}

func ToCandidateResponse(c models.ExpenseCandidate) CandidateResponse {
	resp := CandidateResponse{
		FileRef:       c.FileRef,
		DetectedType:  string(c.DetectedType),
		ConfirmedType: string(c.ConfirmedType),
		Amount:        models.FormatAmount(c.Amount),
		Vendor:        c.Vendor,
		Confidence:    c.Confidence,
		NeedsReview:   c.NeedsReview,
	}
	if !c.Date.IsZero() {
		resp.Date = c.Date.Format(time.DateOnly)
	}
	return resp
}
