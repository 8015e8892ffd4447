// Package schema validates generated output against embedded JSON Schemas
// and checks the content-addressing invariants of a generated tree.
package schema

import (
	"embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// Kind names one of the generated document types.
type Kind string

const (
	KindIndex           Kind = "index"
	KindVersions        Kind = "versions"
	KindManifest        Kind = "manifest"
	KindInstrumentation Kind = "instrumentation"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[Kind]*jsonschema.Schema
	compileErr  error
)

func compileAll() {
	compiled = make(map[Kind]*jsonschema.Schema)
	for _, kind := range []Kind{KindIndex, KindVersions, KindManifest, KindInstrumentation} {
		data, err := schemaFS.ReadFile("schemas/" + string(kind) + ".schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read %s schema: %w", kind, err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		s, err := compiler.Compile(data)
		if err != nil {
			compileErr = fmt.Errorf("compile %s schema: %w", kind, err)
			return
		}
		compiled[kind] = s
	}
}

func lookup(kind Kind) (*jsonschema.Schema, error) {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return nil, compileErr
	}
	s, ok := compiled[kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", kind)
	}
	return s, nil
}

// Validate checks data against the schema for kind.
func Validate(kind Kind, data []byte) error {
	s, err := lookup(kind)
	if err != nil {
		return err
	}
	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%s schema validation failed: %v", kind, result.Errors)
}
