package config

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema/config.cue
var buildSchemaCUE string

// BuildSchema is the name of the built-in configuration schema.
const BuildSchema = "build"

// SchemaRegistry manages CUE schemas for validation. All values it hands out
// belong to its own cue.Context; evaluation is serialized.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.Mutex
}

// NewSchemaRegistry creates a new schema registry with the built-in schema.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema(BuildSchema, buildSchemaCUE, "#BuildConfiguration"); err != nil {
		panic(fmt.Sprintf("built-in schema does not compile: %v", err))
	}

	return sr
}

// RegisterSchema compiles src and registers the named definition in it.
// An empty definition registers the whole file.
func (sr *SchemaRegistry) RegisterSchema(name, src, definition string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(src, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	if definition != "" {
		val = val.LookupPath(cue.ParsePath(definition))
		if !val.Exists() {
			return fmt.Errorf("schema %s has no definition %s", name, definition)
		}
		if err := val.Err(); err != nil {
			return fmt.Errorf("schema %s definition %s: %w", name, definition, err)
		}
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	return slices.Sorted(maps.Keys(sr.schemas))
}

// CheckBytes compiles a CUE (or JSON) document and validates it against the
// named schema. It returns the JSON form of the unified value.
func (sr *SchemaRegistry) CheckBytes(schemaName, filename string, data []byte) ([]byte, []ValidationError, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, convertCUEErrors(err, filename), nil
	}
	return sr.check(schemaName, filename, val)
}

// CheckValue encodes a Go value and validates it against the named schema.
func (sr *SchemaRegistry) CheckValue(schemaName, filename string, data interface{}) ([]byte, []ValidationError, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.Encode(data)
	if err := val.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to encode data: %w", err)
	}
	return sr.check(schemaName, filename, val)
}

// check unifies val with a schema. Callers hold sr.mu.
func (sr *SchemaRegistry) check(schemaName, filename string, val cue.Value) ([]byte, []ValidationError, error) {
	schema, ok := sr.schemas[schemaName]
	if !ok {
		return nil, nil, fmt.Errorf("schema %s not found", schemaName)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEErrors(err, filename), nil
	}

	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to export unified value: %w", err)
	}
	return out, nil, nil
}

// convertCUEErrors converts CUE errors to ValidationError slice. Positions in
// filename are preferred over positions inside the schema.
func convertCUEErrors(err error, filename string) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		var file string
		var line, column int

		pos := errors.Positions(e)
		for i, p := range pos {
			if i == 0 || p.Filename() == filename {
				file = p.Filename()
				line = p.Line()
				column = p.Column()
			}
			if p.Filename() == filename {
				break
			}
		}

		format, args := e.Msg()
		validationErrors = append(validationErrors, ValidationError{
			Class:    ClassMalformedSchema,
			File:     file,
			Line:     line,
			Column:   column,
			Path:     strings.Join(e.Path(), "."),
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	return validationErrors
}
