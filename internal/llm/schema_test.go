package llm

import (
	"errors"
	"testing"
)

func TestSchema_InputFields(t *testing.T) {
	t.Parallel()

	s := testSchema()
	fields := s.InputFields()

	if _, ok := fields["type"]; ok {
		t.Error(`InputFields() kept the "type" key`)
	}
	if _, ok := fields["properties"]; !ok {
		t.Error(`InputFields() dropped "properties"`)
	}
	if _, ok := fields["required"]; !ok {
		t.Error(`InputFields() dropped "required"`)
	}
	if _, ok := s.Doc["type"]; !ok {
		t.Error("InputFields() mutated the original document")
	}
}

func TestSchema_CompileAndValidate(t *testing.T) {
	t.Parallel()

	compiled, err := testSchema().compile()
	if err != nil {
		t.Fatalf("compile() error = %v", err)
	}

	if err := validateJSON(compiled, []byte(`{"word":"haus","score":8}`)); err != nil {
		t.Errorf("validateJSON(valid) error = %v", err)
	}

	err = validateJSON(compiled, []byte(`{"score":8}`))
	if !errors.Is(err, ErrSchema) {
		t.Errorf("validateJSON(missing word) error = %v, want ErrSchema", err)
	}

	err = validateJSON(compiled, []byte(`not json`))
	if !errors.Is(err, ErrSchema) {
		t.Errorf("validateJSON(garbage) error = %v, want ErrSchema", err)
	}
}

func TestSchema_CompileRejectsBadDocument(t *testing.T) {
	t.Parallel()

	s := Schema{
		Name: "broken",
		Doc: map[string]any{
			"type":       "object",
			"properties": map[string]any{"x": map[string]any{"type": "no_such_type"}},
		},
	}
	if _, err := s.compile(); err == nil {
		t.Error("compile() accepted an invalid schema document")
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json untouched", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"uppercase tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no closing fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := string(stripFences([]byte(tt.in))); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}