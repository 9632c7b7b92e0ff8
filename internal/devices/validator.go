package devices

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/analog-board-v1.json
var analogBoardSchemaJSON string

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("analog-board-v1.json",
		strings.NewReader(analogBoardSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("analog-board-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateBoard checks raw board config JSON against the schema. Unknown
// fields are allowed.
func (v *Validator) ValidateBoard(data []byte) error {
	var board interface{}
	if err := json.Unmarshal(data, &board); err != nil {
		return &ConfigValidationError{Problems: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}

	if err := v.schema.Validate(board); err != nil {
		return &ConfigValidationError{Problems: schemaProblems(err)}
	}

	return nil
}

func schemaProblems(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var problems []string
	for _, leaf := range leaves(ve) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", loc, leaf.Message))
	}
	return problems
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
