package plugins

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Kind identifies how a plugin reference was resolved.
type Kind string

const (
	// KindBuiltin is a plugin the style tool ships or knows by package name.
	KindBuiltin Kind = "builtin"

	// KindStarlark is a local Starlark file defining a plugin function.
	KindStarlark Kind = "starlark"
)

// EntryPoint is the global a Starlark plugin file must define.
const EntryPoint = "plugin"

// DefaultTimeout bounds loading a Starlark plugin file.
const DefaultTimeout = 5 * time.Second

// ErrUnresolvable is wrapped by every resolution failure.
var ErrUnresolvable = errors.New("plugin cannot be resolved")

// DefaultBuiltins are the package names resolvable without a file.
var DefaultBuiltins = []string{
	"@tailwindcss/aspect-ratio",
	"@tailwindcss/container-queries",
	"@tailwindcss/forms",
	"@tailwindcss/typography",
}

// Plugin describes a resolved plugin reference.
type Plugin struct {
	// Ref is the reference as written in the configuration.
	Ref string `json:"ref"`

	// Kind is how the reference was resolved.
	Kind Kind `json:"kind"`

	// Path is the absolute file path for Starlark plugins.
	Path string `json:"path,omitempty"`

	// Globals lists the public names the plugin file defines.
	Globals []string `json:"globals,omitempty"`
}

// Resolver checks that plugin references can be loaded. It never invokes
// plugin code beyond loading the file's top level.
type Resolver struct {
	mu       sync.RWMutex
	builtins map[string]struct{}
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a resolver that knows DefaultBuiltins.
func NewResolver(logger zerolog.Logger) *Resolver {
	r := &Resolver{
		builtins: make(map[string]struct{}),
		timeout:  DefaultTimeout,
		logger:   logger.With().Str("component", "plugin-resolver").Logger(),
	}
	for _, name := range DefaultBuiltins {
		r.builtins[name] = struct{}{}
	}
	return r
}

// WithTimeout sets the load timeout for Starlark plugin files.
func (r *Resolver) WithTimeout(timeout time.Duration) *Resolver {
	if timeout > 0 {
		r.timeout = timeout
	}
	return r
}

// Register adds a builtin plugin name.
func (r *Resolver) Register(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[name] = struct{}{}
}

// Builtins returns the registered builtin names, sorted.
func (r *Resolver) Builtins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.builtins))
}

// Resolve resolves ref. Relative Starlark paths are taken from baseDir.
func (r *Resolver) Resolve(ctx context.Context, baseDir, ref string) (*Plugin, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUnresolvable)
	}

	r.mu.RLock()
	_, builtin := r.builtins[ref]
	r.mu.RUnlock()
	if builtin {
		return &Plugin{Ref: ref, Kind: KindBuiltin}, nil
	}

	if filepath.Ext(ref) != ".star" {
		return nil, fmt.Errorf("%w: %q is not a known plugin or a .star file", ErrUnresolvable, ref)
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvable, ref, err)
	}

	globals, err := r.loadStarlark(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnresolvable, ref, err)
	}

	r.logger.Debug().
		Str("ref", ref).
		Str("path", path).
		Msg("Starlark plugin resolved")

	return &Plugin{Ref: ref, Kind: KindStarlark, Path: path, Globals: globals}, nil
}

// loadStarlark executes the file's top level in a sandboxed thread and checks
// that it defines a callable entry point.
func (r *Resolver) loadStarlark(ctx context.Context, path string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin file: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name: "themecfg-plugin",
		Print: func(_ *starlark.Thread, msg string) {
			r.logger.Debug().Str("plugin", path).Str("msg", msg).Msg("Plugin print suppressed")
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load(%q) is not permitted in plugin files", module)
		},
	}

	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}

	type outcome struct {
		globals starlark.StringDict
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		globals, err := starlark.ExecFile(thread, path, src, predeclared)
		done <- outcome{globals: globals, err: err}
	}()

	var res outcome
	select {
	case <-loadCtx.Done():
		thread.Cancel(fmt.Sprintf("plugin load exceeded %v", r.timeout))
		res = <-done
		if res.err == nil {
			res.err = loadCtx.Err()
		}
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", res.err)
	}

	entry, ok := res.globals[EntryPoint]
	if !ok {
		return nil, fmt.Errorf("file does not define %q", EntryPoint)
	}
	if _, ok := entry.(starlark.Callable); !ok {
		return nil, fmt.Errorf("%q is a %s, not a function", EntryPoint, entry.Type())
	}

	var names []string
	for name := range res.globals {
		if !strings.HasPrefix(name, "_") {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}
