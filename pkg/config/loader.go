package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// BuiltinSource is the Document.Source of the built-in configuration.
const BuiltinSource = "builtin"

// Loader reads configuration documents, checks them against the CUE schema
// and validates the decoded record.
type Loader struct {
	schemas   *SchemaRegistry
	validator *Validator
	logger    zerolog.Logger
	root      string
}

// NewLoader creates a loader. A nil validator uses NewValidator with the
// default plugin resolver.
func NewLoader(logger zerolog.Logger, v *Validator) *Loader {
	if v == nil {
		v = NewValidator(logger, nil)
	}
	return &Loader{
		schemas:   NewSchemaRegistry(),
		validator: v,
		logger:    logger.With().Str("component", "config-loader").Logger(),
	}
}

// WithRoot makes every load scan root for content globs matching no files.
func (l *Loader) WithRoot(root string) *Loader {
	l.root = root
	return l
}

// Schemas returns the schema registry.
func (l *Loader) Schemas() *SchemaRegistry {
	return l.schemas
}

// LoadFile reads and validates a configuration file. The format is taken from
// the file extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Document, error) {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, NewMalformedSchemaError("cannot determine document format", nil, err).WithSource(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return l.LoadBytes(ctx, path, data, format)
}

// LoadBytes validates an in-memory document. name is used for error
// locations and to anchor relative plugin paths.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte, format Format) (*Document, error) {
	start := time.Now()

	cfg, err := l.decode(name, data, format)
	if err != nil {
		return nil, err
	}

	report, err := l.validator.Validate(ctx, cfg, ValidateOptions{
		BaseDir: filepath.Dir(name),
		Root:    l.root,
	})
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.WithSource(name)
		}
		return nil, err
	}

	l.logger.Debug().
		Str("source", name).
		Str("format", string(format)).
		Int("globs", len(cfg.Content)).
		Int("plugins", len(cfg.Plugins)).
		Int("warnings", len(report.Warnings())).
		Dur("duration", time.Since(start)).
		Msg("Configuration loaded")

	return &Document{
		Config:   cfg,
		Source:   name,
		Format:   format,
		LoadedAt: time.Now(),
		Report:   report,
	}, nil
}

// LoadDefault validates the built-in configuration and wraps it in a Document.
func (l *Loader) LoadDefault(ctx context.Context) (*Document, error) {
	cfg := Default()
	report, err := l.validator.Validate(ctx, cfg, ValidateOptions{BaseDir: ".", Root: l.root})
	if err != nil {
		return nil, err
	}
	return &Document{
		Config:   cfg,
		Source:   BuiltinSource,
		Format:   FormatCUE,
		LoadedAt: time.Now(),
		Report:   report,
	}, nil
}

// decode checks the document shape against the schema and decodes it.
func (l *Loader) decode(name string, data []byte, format Format) (*BuildConfiguration, error) {
	var (
		exported []byte
		issues   []ValidationError
		err      error
	)

	switch format {
	case FormatCUE, FormatJSON:
		exported, issues, err = l.schemas.CheckBytes(BuildSchema, name, data)
	case FormatYAML:
		var generic interface{}
		if yerr := yaml.Unmarshal(data, &generic); yerr != nil {
			return nil, NewMalformedSchemaError("invalid YAML", nil, yerr).WithSource(name)
		}
		if generic == nil {
			return nil, NewMalformedSchemaError("document is empty", nil, nil).WithSource(name)
		}
		exported, issues, err = l.schemas.CheckValue(BuildSchema, name, stringKeys(generic))
	default:
		return nil, NewMalformedSchemaError(fmt.Sprintf("format %q cannot be loaded", format), nil, nil).WithSource(name)
	}
	if err != nil {
		return nil, NewMalformedSchemaError("schema check failed", nil, err).WithSource(name)
	}
	if len(issues) > 0 {
		return nil, NewMalformedSchemaError("configuration does not match the schema", issues, nil).WithSource(name)
	}

	var cfg BuildConfiguration
	if err := json.Unmarshal(exported, &cfg); err != nil {
		return nil, NewMalformedSchemaError("failed to decode configuration", nil, err).WithSource(name)
	}
	if cfg.Plugins == nil {
		cfg.Plugins = []string{}
	}
	return &cfg, nil
}

// stringKeys converts YAML mappings with non-string keys, such as the shade
// key 50, to string-keyed maps so the document encodes like its JSON form.
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]interface{}:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	}
	return v
}
