package service

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/llm"
)

var (
	schemaOnce sync.Once
	schemas    map[intent.Kind]llm.Schema
	schemaErr  error
)

// responseTypes maps each structured intent to the raw shape the provider
// must return.
var responseTypes = map[intent.Kind]struct {
	name string
	v    any
}{
	intent.KindOrganize:  {"organize_response", &intent.RawOrganize{}},
	intent.KindQuestions: {"questions_response", &intent.RawQuestions{}},
	intent.KindDailyPlan: {"daily_plan_response", &intent.RawDailyPlan{}},
}

// ResponseSchema returns the JSON Schema a provider's output must satisfy
// for kind. Schemas are reflected from the raw response types once.
func ResponseSchema(kind intent.Kind) (llm.Schema, error) {
	schemaOnce.Do(func() {
		schemas, schemaErr = buildSchemas()
	})
	if schemaErr != nil {
		return llm.Schema{}, schemaErr
	}
	s, ok := schemas[kind]
	if !ok {
		return llm.Schema{}, fmt.Errorf("intent %s has no response schema", kind)
	}
	return s, nil
}

func buildSchemas() (map[intent.Kind]llm.Schema, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	out := make(map[intent.Kind]llm.Schema, len(responseTypes))
	for kind, rt := range responseTypes {
		s := r.Reflect(rt.v)
		s.Version = ""
		doc, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal %s schema: %w", kind, err)
		}
		out[kind] = llm.Schema{Name: rt.name, Doc: doc}
	}
	return out, nil
}
