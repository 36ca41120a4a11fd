package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildResultJSONSchema returns the schema for the model's reply. Both keys are optional
// and may be string, number or null; anything else is treated as unreadable.
func BuildResultJSONSchema() map[string]any {
	value := map[string]any{"type": []string{"string", "number", "null"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"work_order_number": value,
			"equipment_number":  value,
		},
	}
}

var resultSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(BuildResultJSONSchema())
})

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates data against the extraction result schema.
func ValidateJSONAgainstSchema(data []byte) error {
	schema, err := resultSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
