package recognition

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

var (
	reAmount = regexp.MustCompile(`\$\d+(?:,\d+)*(?:\.\d{2})?`)
	reDate   = regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud)\b|[$£€]`)
)

// LocalRecognizer extracts the text layer of PDFs and passes CSV/plain text
// through unchanged. It performs no image OCR; image uploads need the
// gigachat backend.
type LocalRecognizer struct {
	logger *zap.Logger
}

func NewLocalRecognizer(logger *zap.Logger) *LocalRecognizer {
	return &LocalRecognizer{logger: logger}
}

func (r *LocalRecognizer) Recognize(ctx context.Context, doc Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string
	switch doc.MIME {
	case "application/pdf":
		extracted, err := r.extractPDFText(doc)
		if err != nil {
			return nil, err
		}
		text = extracted
	case "text/csv", "text/plain":
		text = string(doc.Data)
	default:
		return nil, fmt.Errorf("local backend cannot recognize %s; use the gigachat backend", doc.MIME)
	}

	text = strings.TrimSpace(text)
	result := &Result{
		Backend: BackendLocal,
		Text:    text,
		HTML:    MarkupText(text),
		Fields:  heuristicFields(text),
	}

	r.logger.Info("local recognition completed",
		zap.String("file", doc.Name),
		zap.Int("text_length", len(text)),
		zap.Int("fields", len(result.Fields)),
	)
	return result, nil
}

func (r *LocalRecognizer) extractPDFText(doc Document) (string, error) {
	pdf, err := fitz.NewFromMemory(doc.Data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer pdf.Close()

	var builder strings.Builder
	for i := 0; i < pdf.NumPage(); i++ {
		pageText, err := pdf.Text(i)
		if err != nil {
			r.logger.Warn("failed to extract text from page",
				zap.Int("page", i+1),
				zap.String("file", doc.Name),
				zap.Error(err),
			)
			continue
		}
		if pageText != "" {
			builder.WriteString(pageText)
			builder.WriteString("\n")
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("no text layer found in PDF")
	}
	return text, nil
}

// MarkupText produces the marked-up rendition of recognized text: HTML-escaped
// with amount tokens wrapped in <mark> and line breaks preserved.
func MarkupText(text string) string {
	escaped := html.EscapeString(text)
	escaped = reAmount.ReplaceAllString(escaped, "<mark>$0</mark>")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// heuristicFields derives extracted fields from raw text. Confidence is a
// rough signal-counting score, never high enough to skip operator review on
// its own unless the text is strongly receipt-shaped.
func heuristicFields(text string) map[string]Field {
	fields := make(map[string]Field)
	confidence := heuristicConfidence(text)

	if m := reAmount.FindString(text); m != "" {
		fields[FieldAmount] = Field{Value: m, Confidence: confidence}
	}
	if m := reDate.FindString(text); m != "" {
		fields[FieldDate] = Field{Value: m, Confidence: confidence}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func heuristicConfidence(text string) float64 {
	lower := strings.ToLower(text)
	score := 20.0
	if reDate.MatchString(lower) {
		score += 20
	}
	if reCurr.MatchString(lower) {
		score += 15
	}
	if reAmount.MatchString(lower) {
		score += 15
	}
	if len(text) > 120 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
