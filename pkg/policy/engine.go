package policy

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"

	"github.com/openfroyo/themecfg/pkg/config"
)

// Engine compiles and evaluates configuration policies.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
}

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy   *Policy
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewEngine creates a new policy engine with the built-in policies loaded.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
	}

	builtins := GetBuiltinPolicies()
	for i := range builtins {
		if err := e.AddPolicy(context.Background(), builtins[i]); err != nil {
			return nil, fmt.Errorf("failed to compile built-in policy %s: %w", builtins[i].Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(builtins)).
		Msg("Built-in policies loaded")

	return e, nil
}

// AddPolicy compiles p and adds it, replacing any policy with the same name.
func (e *Engine) AddPolicy(ctx context.Context, p Policy) error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if p.Severity == "" {
		p.Severity = config.SeverityWarning
	}

	module, err := ast.ParseModule(p.Name, p.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy %s: %w", p.Name, err)
	}
	if module == nil {
		return fmt.Errorf("policy %s is empty", p.Name)
	}

	query, err := rego.New(
		rego.ParsedModule(module),
		rego.Query(module.Package.Path.String()+".deny"),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare policy %s: %w", p.Name, err)
	}

	e.mu.Lock()
	e.policies[p.Name] = &compiledPolicy{
		policy:   &p,
		query:    query,
		compiled: time.Now(),
	}
	e.mu.Unlock()

	e.logger.Debug().
		Str("policy", p.Name).
		Str("package", module.Package.Path.String()).
		Msg("Policy compiled successfully")

	return nil
}

// LoadPolicies loads policy files from paths and adds them.
func (e *Engine) LoadPolicies(ctx context.Context, loader *Loader, paths []string) error {
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return err
	}
	for i := range policies {
		if err := e.AddPolicy(ctx, policies[i]); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs every enabled policy against cfg.
func (e *Engine) Evaluate(ctx context.Context, cfg *config.BuildConfiguration, source string) (*Result, error) {
	start := time.Now()

	input, err := newInput(cfg, source)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	result := &Result{Allowed: true, EvaluatedPolicies: []string{}}
	for _, name := range slices.Sorted(maps.Keys(e.policies)) {
		cp := e.policies[name]
		if !cp.policy.Enabled {
			continue
		}
		result.EvaluatedPolicies = append(result.EvaluatedPolicies, name)

		violations, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", name, err)
		}
		result.Violations = append(result.Violations, violations...)
	}

	for _, v := range result.Violations {
		if v.Severity == config.SeverityError {
			result.Allowed = false
			break
		}
	}
	result.Duration = time.Since(start)

	e.logger.Debug().
		Int("policies", len(result.EvaluatedPolicies)).
		Int("violations", len(result.Violations)).
		Bool("allowed", result.Allowed).
		Dur("duration", result.Duration).
		Msg("Policies evaluated")

	return result, nil
}

// newInput converts cfg to the generic JSON form Rego sees.
func newInput(cfg *config.BuildConfiguration, source string) (*Input, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy input: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode policy input: %w", err)
	}
	return &Input{Config: generic, Source: source}, nil
}

// evaluatePolicy evaluates a single compiled policy.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input *Input) ([]Violation, error) {
	results, err := cp.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []Violation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			violations = append(violations, createViolation(cp.policy, d))
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Path < violations[j].Path
	})
	return violations, nil
}

// createViolation creates a Violation from one deny entry. Entries are either
// a message string or an object with message, path and severity.
func createViolation(p *Policy, result interface{}) Violation {
	violation := Violation{
		Policy:   p.Name,
		Severity: p.Severity,
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if path, ok := v["path"].(string); ok {
			violation.Path = path
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = config.Severity(sev)
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, ok := e.policies[name]
	if !ok {
		return nil, fmt.Errorf("policy not found: %s", name)
	}
	p := *cp.policy
	return &p, nil
}

// ListPolicies returns all policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, name := range slices.Sorted(maps.Keys(e.policies)) {
		policies = append(policies, *e.policies[name].policy)
	}
	return policies
}

// EnablePolicy enables a policy.
func (e *Engine) EnablePolicy(name string) error {
	return e.setEnabled(name, true)
}

// DisablePolicy disables a policy.
func (e *Engine) DisablePolicy(name string) error {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, ok := e.policies[name]
	if !ok {
		return fmt.Errorf("policy not found: %s", name)
	}
	cp.policy.Enabled = enabled

	e.logger.Info().
		Str("policy", name).
		Bool("enabled", enabled).
		Msg("Policy state changed")

	return nil
}
