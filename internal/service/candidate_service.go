package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/apperr"
	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/recognition"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// amountTokenRe matches dollar amount tokens in recognized text.
var amountTokenRe = regexp.MustCompile(`\$\d+(?:,\d+)*(?:\.\d{2})?`)

// scrapedConfidence is assigned to amounts scraped from raw text rather than
// supplied as typed fields; always below the review threshold.
const scrapedConfidence = 50

var typeKeywords = []struct {
	keyword string
	t       models.ExpenseType
}{
	{"toll", models.ExpenseTypeToll},
	{"turnpike", models.ExpenseTypeToll},
	{"ticket", models.ExpenseTypeTicket},
	{"citation", models.ExpenseTypeTicket},
	{"violation", models.ExpenseTypeTicket},
	{"cleaning", models.ExpenseTypeCleaning},
	{"wash", models.ExpenseTypeCleaning},
	{"damage", models.ExpenseTypeDamage},
	{"repair", models.ExpenseTypeDamage},
}

// CandidateService turns recognition output into expense candidates and
// promotes confirmed candidates into persisted expenses.
type CandidateService struct {
	expenseRepo repository.ExpenseRepository
	logger      *zap.Logger
}

func NewCandidateService(expenseRepo repository.ExpenseRepository, logger *zap.Logger) *CandidateService {
	return &CandidateService{expenseRepo: expenseRepo, logger: logger}
}

// Build converts recognition output into zero or more candidates. Typed
// extracted fields take precedence over text scraping; scraped amount tokens
// are deduplicated case-insensitively with the first occurrence kept and
// order preserved.
func (s *CandidateService) Build(result *recognition.Result, fileRef string) []models.ExpenseCandidate {
	detected := detectType(result)
	vendor := fieldValue(result, recognition.FieldVendor)
	date := fieldDate(result)

	seen := make(map[string]struct{})
	var candidates []models.ExpenseCandidate

	if f, ok := result.Fields[recognition.FieldAmount]; ok && f.Value != "" {
		if amount, err := parseAmountToken(f.Value); err == nil {
			seen[strings.ToLower(f.Value)] = struct{}{}
			candidates = append(candidates, s.newCandidate(fileRef, detected, amount, vendor, date, f.Confidence))
		}
	}

	for _, token := range amountTokenRe.FindAllString(result.Text, -1) {
		key := strings.ToLower(token)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		amount, err := parseAmountToken(token)
		if err != nil {
			continue
		}
		candidates = append(candidates, s.newCandidate(fileRef, detected, amount, vendor, date, scrapedConfidence))
	}

	s.logger.Info("candidates built",
		zap.String("file_ref", fileRef),
		zap.String("detected_type", string(detected)),
		zap.Int("count", len(candidates)),
	)
	return candidates
}

func (s *CandidateService) newCandidate(fileRef string, detected models.ExpenseType, amount decimal.Decimal, vendor string, date time.Time, confidence float64) models.ExpenseCandidate {
	return models.ExpenseCandidate{
		FileRef:       fileRef,
		DetectedType:  detected,
		ConfirmedType: detected,
		Amount:        amount,
		Vendor:        sanitizeUTF8(vendor),
		Date:          date,
		Confidence:    confidence,
		NeedsReview:   confidence < models.ReviewThreshold,
	}
}

// Promote creates a pending expense from a confirmed candidate. The write is
// all-or-nothing: a failure leaves no partial expense behind.
func (s *CandidateService) Promote(ctx context.Context, c models.ExpenseCandidate, description, actor string) (*models.Expense, error) {
	if c.ConfirmedType == "" {
		return nil, apperr.Validation("confirmed type is required before promotion")
	}
	if c.Amount.IsNegative() {
		return nil, apperr.Validation("amount must not be negative")
	}

	occurred := c.Date
	if occurred.IsZero() {
		occurred = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if description == "" {
		description = c.Vendor
	}

	now := time.Now().UTC()
	expense := &models.Expense{
		ID:               uuid.New(),
		Description:      sanitizeUTF8(description),
		Type:             c.ConfirmedType,
		Status:           models.StatusPending,
		Amount:           c.Amount,
		DateOccurred:     occurred,
		ReceiptReference: c.FileRef,
		CreatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, err
	}

	s.logger.Info("candidate promoted",
		zap.String("expense_id", expense.ID.String()),
		zap.String("type", string(expense.Type)),
		zap.String("amount", models.FormatAmount(expense.Amount)),
	)
	return expense, nil
}

func detectType(result *recognition.Result) models.ExpenseType {
	if f, ok := result.Fields[recognition.FieldType]; ok {
		if t, valid := models.ParseExpenseType(strings.ToLower(f.Value)); valid {
			return t
		}
	}

	lower := strings.ToLower(result.Text)
	for _, entry := range typeKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.t
		}
	}
	return models.ExpenseTypeOther
}

func fieldValue(result *recognition.Result, name string) string {
	if f, ok := result.Fields[name]; ok {
		return f.Value
	}
	return ""
}

func fieldDate(result *recognition.Result) time.Time {
	if f, ok := result.Fields[recognition.FieldDate]; ok {
		if t, err := time.Parse(time.DateOnly, f.Value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseAmountToken converts a "$1,234.56" token into a decimal, keeping the
// token's scale.
func parseAmountToken(token string) (decimal.Decimal, error) {
	cleaned := strings.TrimPrefix(token, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	return decimal.NewFromString(cleaned)
}
