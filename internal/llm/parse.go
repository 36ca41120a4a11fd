package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StripFence removes a leading ```json (or bare ```) marker and a trailing ``` marker.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseResult decodes the model's reply. Any error means both fields should be treated
// as null; it is never a reason to call the model again.
func ParseResult(content string) (ExtractionResult, error) {
	raw := []byte(StripFence(content))
	if err := ValidateJSONAgainstSchema(raw); err != nil {
		return ExtractionResult{}, fmt.Errorf("parse extraction result: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return ExtractionResult{}, fmt.Errorf("decode extraction result: %w", err)
	}
	return ExtractionResult{
		WorkOrderNumber: fieldText(m["work_order_number"]),
		EquipmentNumber: fieldText(m["equipment_number"]),
	}, nil
}

// fieldText keeps numbers as their literal text instead of round-tripping through float64.
func fieldText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
