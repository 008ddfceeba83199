package recognition

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// extractionSchema constrains the JSON payload a model-backed recognizer is
// allowed to return. Anything outside it is treated as an unusable payload.
const extractionSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"},
		"fields": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["value", "confidence"],
				"properties": {
					"value": {"type": "string"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 100}
				}
			}
		}
	}
}`

var compiledSchema = jsonschema.MustCompileString("extraction.json", extractionSchema)

type extractionPayload struct {
	Text   string           `json:"text"`
	Fields map[string]Field `json:"fields"`
}

// parseExtraction validates and decodes a model reply. The reply may wrap the
// JSON object in markdown fences or surrounding prose.
func parseExtraction(content string) (*extractionPayload, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in reply")
	}
	raw := content[start : end+1]

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("payload does not match extraction schema: %w", err)
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
