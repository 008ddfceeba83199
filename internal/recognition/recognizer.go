package recognition

import (
	"context"
)

// Backend tags the recognizer variant that produced a Result.
type Backend string

const (
	BackendGigaChat Backend = "gigachat"
	BackendLocal    Backend = "local"
)

// Well-known extracted field names.
const (
	FieldAmount = "amount"
	FieldVendor = "vendor"
	FieldDate   = "date"
	FieldType   = "type"
)

// Field is one extracted value with its confidence on a 0-100 scale.
type Field struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Result is the recognition output: raw text, marked-up text and, when the
// backend supplies them, extracted fields.
type Result struct {
	Backend Backend          `json:"backend"`
	Text    string           `json:"text"`
	HTML    string           `json:"html"`
	Fields  map[string]Field `json:"fields,omitempty"`
}

// Document is the input handed to a recognizer.
type Document struct {
	Name string
	MIME string
	Data []byte
}

// Recognizer turns an uploaded document into text and extracted fields.
// Implementations must respect ctx cancellation; callers bound the call with
// a timeout.
type Recognizer interface {
	Recognize(ctx context.Context, doc Document) (*Result, error)
}
