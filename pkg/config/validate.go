package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/image/colornames"

	"github.com/openfroyo/themecfg/pkg/content"
	"github.com/openfroyo/themecfg/pkg/plugins"
)

// PluginResolver resolves plugin references relative to a base directory.
type PluginResolver interface {
	Resolve(ctx context.Context, baseDir, ref string) (*plugins.Plugin, error)
}

// ValidateOptions controls optional validation steps.
type ValidateOptions struct {
	// BaseDir anchors relative plugin paths. Usually the config file's directory.
	BaseDir string

	// Root, when set, is scanned to detect content globs matching no files.
	Root string
}

// cssKeywords are color values accepted besides hex, functional and named colors.
var cssKeywords = map[string]struct{}{
	"transparent":  {},
	"currentcolor": {},
	"current":      {},
	"inherit":      {},

	// Added in CSS Color 4, absent from the SVG 1.1 table.
	"rebeccapurple": {},
}

// colorValidate checks hex and functional color notations.
var colorValidate = validator.New()

// tokenNamePattern restricts token and variant names to class-name-safe text.
var tokenNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validator applies the validation policy to a BuildConfiguration.
type Validator struct {
	validate *validator.Validate
	resolver PluginResolver
	scanner  *content.Scanner
	logger   zerolog.Logger
}

// NewValidator creates a validator. A nil resolver uses plugins.NewResolver.
func NewValidator(logger zerolog.Logger, resolver PluginResolver) *Validator {
	logger = logger.With().Str("component", "config-validator").Logger()
	if resolver == nil {
		resolver = plugins.NewResolver(logger)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "contentglob", func(fl validator.FieldLevel) bool {
		return content.Validate(fl.Field().String()) == nil
	})

	return &Validator{
		validate: v,
		resolver: resolver,
		scanner:  content.NewScanner(logger),
		logger:   logger,
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// IsColor reports whether s is an accepted CSS color value.
func IsColor(s string) bool {
	return isColor(s)
}

// isColor accepts hex, CSS named colors, keywords and the functional
// notations of CSS Color 4 in both comma and space/slash syntax. var() and
// calc() stand in for any channel.
func isColor(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	if _, ok := cssKeywords[lower]; ok {
		return true
	}
	if _, ok := colornames.Map[lower]; ok {
		return true
	}
	if strings.HasPrefix(s, "#") {
		return colorValidate.Var(s, "hexcolor") == nil
	}
	return isColorFunction(lower)
}

// colorFunctionPattern splits a functional color into name and arguments.
var colorFunctionPattern = regexp.MustCompile(`^(rgba?|hsla?|hwb|lab|lch|oklab|oklch|color)\((.*)\)$`)

// colorChannelPattern matches one channel: a number with optional unit,
// the none keyword, a substituted var()/calc() or the alpha placeholder
// the style tool fills in.
var colorChannelPattern = regexp.MustCompile(`^([+-]?(\d+\.?\d*|\.\d+)(e[+-]?\d+)?(%|deg|rad|grad|turn)?|none|\x00|<alpha-value>)$`)

// colorSpaces are the predefined spaces accepted by color().
var colorSpaces = map[string]struct{}{
	"srgb":         {},
	"srgb-linear":  {},
	"display-p3":   {},
	"a98-rgb":      {},
	"prophoto-rgb": {},
	"rec2020":      {},
	"xyz":          {},
	"xyz-d50":      {},
	"xyz-d65":      {},
}

func isColorFunction(s string) bool {
	m := colorFunctionPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	fn := m[1]
	args, ok := substituteFunctions(m[2])
	if !ok {
		return false
	}
	hasVar := strings.Contains(args, "\x00")

	// Legacy syntax: rgb(1, 2, 3) and rgba(1, 2, 3, 0.5).
	if strings.Contains(args, ",") {
		switch fn {
		case "rgb", "rgba", "hsl", "hsla":
		default:
			return false
		}
		if strings.Contains(args, "/") {
			return false
		}
		parts := strings.Split(args, ",")
		if !channelCountOK(len(parts), 3, 4, hasVar) {
			return false
		}
		for _, p := range parts {
			if !colorChannelPattern.MatchString(strings.TrimSpace(p)) {
				return false
			}
		}
		return true
	}

	channels, alpha, hasAlpha := strings.Cut(args, "/")
	if hasAlpha {
		a := strings.TrimSpace(alpha)
		if strings.Contains(a, " ") || !colorChannelPattern.MatchString(a) {
			return false
		}
	}

	fields := strings.Fields(channels)
	if fn == "color" && len(fields) > 0 && fields[0] != "\x00" {
		if _, ok := colorSpaces[fields[0]]; !ok {
			return false
		}
		fields = fields[1:]
	}
	if !channelCountOK(len(fields), 3, 3, hasVar) {
		return false
	}
	for _, f := range fields {
		if !colorChannelPattern.MatchString(f) {
			return false
		}
	}
	return true
}

// channelCountOK checks n against [minN, maxN]. A var() may expand to
// several channels, so any count from one up to maxN is accepted with one.
func channelCountOK(n, minN, maxN int, hasVar bool) bool {
	if hasVar {
		return n >= 1 && n <= maxN
	}
	return n >= minN && n <= maxN
}

// substituteFunctions replaces each var(...) and calc(...) with a NUL
// placeholder. Any other nested function, or unbalanced parentheses, fail.
func substituteFunctions(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "var("), strings.HasPrefix(s[i:], "calc("):
			depth := 0
			j := i + strings.IndexByte(s[i:], '(')
			for ; j < len(s); j++ {
				if s[j] == '(' {
					depth++
				} else if s[j] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if depth != 0 {
				return "", false
			}
			b.WriteByte(0)
			i = j + 1
		case s[i] == '(' || s[i] == ')':
			return "", false
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), true
}

// Validate checks cfg and returns the findings. The error is a *ConfigError
// when any fatal finding exists; malformed schema wins over plugin failures.
// Globs matching no files under opts.Root are reported as warnings only.
func (v *Validator) Validate(ctx context.Context, cfg *BuildConfiguration, opts ValidateOptions) (*Report, error) {
	report := &Report{}

	report.Issues = append(report.Issues, v.checkStruct(cfg)...)
	report.Issues = append(report.Issues, v.checkTokens(cfg)...)

	if issues := report.byClass(ClassMalformedSchema); len(issues) > 0 {
		return report, NewMalformedSchemaError("configuration does not match the expected shape", issues, nil)
	}

	report.Issues = append(report.Issues, v.checkPlugins(ctx, cfg, opts.BaseDir)...)
	if issues := report.byClass(ClassUnresolvablePlugin); len(issues) > 0 {
		return report, NewUnresolvablePluginError("plugin references cannot be resolved", issues, nil)
	}

	if opts.Root != "" {
		issues, matches, err := v.checkGlobs(ctx, cfg, opts.Root)
		if err != nil {
			return report, fmt.Errorf("failed to evaluate content globs: %w", err)
		}
		report.Issues = append(report.Issues, issues...)
		report.Matches = matches
	}

	for _, w := range report.Warnings() {
		v.logger.Warn().
			Str("class", string(w.Class)).
			Str("path", w.Path).
			Msg(w.Message)
	}

	return report, nil
}

// checkStruct applies the struct tags on BuildConfiguration.
func (v *Validator) checkStruct(cfg *BuildConfiguration) []ValidationError {
	err := v.validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return []ValidationError{{
			Class:    ClassMalformedSchema,
			Message:  err.Error(),
			Severity: SeverityError,
		}}
	}

	issues := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, ValidationError{
			Class:    ClassMalformedSchema,
			Path:     fieldPath(fe.Namespace()),
			Message:  fieldMessage(fe),
			Severity: SeverityError,
		})
	}
	return issues
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "unique":
		return "contains duplicate patterns"
	case "contentglob":
		return fmt.Sprintf("%q is not a valid content glob: %v", fe.Value(), content.Validate(fmt.Sprint(fe.Value())))
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// checkTokens walks theme.extend. Color categories require CSS color values,
// other categories non-empty strings. Scaled tokens require DEFAULT.
func (v *Validator) checkTokens(cfg *BuildConfiguration) []ValidationError {
	var issues []ValidationError

	malformed := func(path, format string, args ...interface{}) {
		issues = append(issues, ValidationError{
			Class:    ClassMalformedSchema,
			Path:     path,
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, category := range cfg.Categories() {
		set := cfg.Theme.Extend[category]
		base := "theme.extend." + category

		if len(set) == 0 {
			malformed(base, "category has no tokens")
			continue
		}

		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			tok := set[name]
			path := base + "." + name

			if !tokenNamePattern.MatchString(name) {
				malformed(path, "token name %q contains unsupported characters", name)
			}

			if tok.IsScaled() {
				if _, ok := tok.Default(); !ok {
					malformed(path, "scaled token must define %s", DefaultKey)
				}
			}

			for _, entry := range tok.Entries() {
				entryPath := path
				if tok.IsScaled() {
					entryPath = path + "." + entry[0]
					if entry[0] != DefaultKey && !tokenNamePattern.MatchString(entry[0]) {
						malformed(entryPath, "variant name %q contains unsupported characters", entry[0])
					}
				}
				if msg := checkTokenValue(category, entry[1]); msg != "" {
					malformed(entryPath, "%s", msg)
				}
			}
		}
	}

	return issues
}

func checkTokenValue(category, value string) string {
	if strings.TrimSpace(value) == "" {
		return "value is empty"
	}
	if category == CategoryColors && !isColor(value) {
		return fmt.Sprintf("%q is not a valid color value", value)
	}
	return ""
}

// checkPlugins resolves every plugin reference.
func (v *Validator) checkPlugins(ctx context.Context, cfg *BuildConfiguration, baseDir string) []ValidationError {
	var issues []ValidationError
	for i, ref := range cfg.Plugins {
		if _, err := v.resolver.Resolve(ctx, baseDir, ref); err != nil {
			issues = append(issues, ValidationError{
				Class:    ClassUnresolvablePlugin,
				Path:     fmt.Sprintf("plugins[%d]", i),
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
	}
	return issues
}

// checkGlobs scans root and warns about patterns that match nothing.
func (v *Validator) checkGlobs(ctx context.Context, cfg *BuildConfiguration, root string) ([]ValidationError, map[string]int, error) {
	result, err := v.scanner.Scan(ctx, root, cfg.Content)
	if err != nil {
		return nil, nil, err
	}

	matches := make(map[string]int, len(cfg.Content))
	for _, p := range cfg.Content {
		matches[p] = len(result.PerPattern[p])
	}

	var issues []ValidationError
	for _, p := range result.Unmatched(cfg.Content) {
		issues = append(issues, ValidationError{
			Class:    ClassUnresolvableGlob,
			Path:     fmt.Sprintf("content[%d]", slices.Index(cfg.Content, p)),
			Message:  fmt.Sprintf("pattern %q matches no files under %s", p, root),
			Severity: SeverityWarning,
		})
	}
	return issues, matches, nil
}
