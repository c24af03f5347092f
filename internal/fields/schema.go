package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildFieldsJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the extracted-fields payload as a generic map. Used to validate the
// payload before it is published to consumers. Nothing is required: every
// field is optional by contract.
func BuildFieldsJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"amount":         map[string]any{"type": "string", "minLength": 1},
			"issue_date":     map[string]any{"type": "string", "minLength": 1},
			"due_date":       map[string]any{"type": "string", "minLength": 1},
			"location":       map[string]any{"type": "string", "minLength": 1},
			"violation_type": map[string]any{"type": "string", "minLength": 1},
			"ticket_number":  map[string]any{"type": "string", "minLength": 1},
			"vehicle_info":   map[string]any{"type": "string", "minLength": 1},
			"authority":      map[string]any{"type": "string", "minLength": 1},
		},
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildFieldsJSONSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("fields.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("fields.json")
	})
	return schema, schemaErr
}

// ValidateJSON validates a serialized fields payload against the schema.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
