package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewThreshold is the extraction confidence below which a candidate
// requires operator review before promotion.
const ReviewThreshold = 80

// ExpenseCandidate is an unconfirmed expense extracted from a recognized
// document. Candidates are ephemeral: they live between recognition and
// promotion and are never persisted on their own.
type ExpenseCandidate struct {
	FileRef       string          `json:"file_ref"`
	DetectedType  ExpenseType     `json:"detected_type"`
	ConfirmedType ExpenseType     `json:"confirmed_type"`
	Amount        decimal.Decimal `json:"amount"`
	Vendor        string          `json:"vendor"`
	Date          time.Time       `json:"date"`
	Confidence    float64         `json:"confidence"`
	NeedsReview   bool            `json:"needs_review"`
}
