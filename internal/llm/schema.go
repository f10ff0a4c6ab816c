package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/heartmarshall/vocab-enricher/internal/domain"
)

// ErrSchema marks provider output that failed JSON-Schema validation. It
// carries domain.ErrProviderProtocol so the judge's protocol rule catches it.
var ErrSchema = fmt.Errorf("%w: output does not match schema", domain.ErrProviderProtocol)

// Schema describes the structured output of one gateway call. Doc is a full
// JSON-Schema document; providers surface Name as the tool or format name.
type Schema struct {
	Name        string
	Description string
	Doc         map[string]any
}

// InputFields returns the schema document without its top-level "type" key,
// for providers whose tool parameter carries the object type itself.
func (s Schema) InputFields() map[string]any {
	out := make(map[string]any, len(s.Doc))
	for k, v := range s.Doc {
		if k == "type" {
			continue
		}
		out[k] = v
	}
	return out
}

// compile builds a validator from the schema document. The doc is round-tripped
// through JSON so Go literals (ints, typed slices) become plain JSON values.
func (s Schema) compile() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s.Doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", s.Name, err)
	}

	c := jsonschema.NewCompiler()
	url := s.Name + ".schema.json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", s.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", s.Name, err)
	}
	return compiled, nil
}

// Validate checks a JSON document against the schema. Violations wrap
// ErrSchema.
func (s Schema) Validate(data []byte) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}
	return validateJSON(compiled, data)
}

// validateJSON checks raw provider output against a compiled schema.
func validateJSON(compiled *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrSchema, err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// stripFences removes a Markdown code fence around a JSON payload. Providers
// constrained by a response format occasionally wrap the document anyway.
func stripFences(data []byte) []byte {
	out := bytes.TrimSpace(data)
	if !bytes.HasPrefix(out, []byte("```")) {
		return out
	}
	out = out[3:]
	out = bytes.TrimPrefix(out, []byte("json"))
	out = bytes.TrimPrefix(out, []byte("JSON"))
	if i := bytes.LastIndex(out, []byte("```")); i >= 0 {
		out = out[:i]
	}
	return bytes.TrimSpace(out)
}
