package artifact

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

// Schema names for persisted artifact shapes.
const (
	SchemaLayout  = "layout-capture-v1"
	SchemaDiffRun = "diff-run-v1"
)

var compiled = map[string]*jsonschema.Schema{}

func init() {
	for _, name := range []string{SchemaLayout, SchemaDiffRun} {
		data, err := schemaFS.ReadFile("schema/" + name + ".schema.json")
		if err != nil {
			panic(fmt.Sprintf("artifact: missing embedded schema %s: %v", name, err))
		}
		compiler := jsonschema.NewCompiler()
		url := "padscope://" + name + ".schema.json"
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("artifact: add schema %s: %v", name, err))
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("artifact: compile schema %s: %v", name, err))
		}
		compiled[name] = schema
	}
}

// Validate checks raw artifact bytes against a named embedded schema before
// the model-level parse runs. Schema validation gives structured errors for
// hand-edited or truncated capture files; it is optional and the parse
// itself remains the source of truth.
func Validate(schemaName string, data []byte) error {
	schema, ok := compiled[schemaName]
	if !ok {
		return fmt.Errorf("unknown artifact schema %q", schemaName)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode artifact for validation: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("artifact does not match %s: %w", schemaName, err)
	}
	return nil
}
