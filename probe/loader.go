package probe

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Loader names accepted by NewLoader.
const (
	LoaderPackages = "packages"
	LoaderPlugin   = "plugin"
)

// ErrNotExported is returned when a symbol exists but is not exported.
var ErrNotExported = errors.New("symbol is not exported")

// Symbol describes a resolved export.
type Symbol struct {
	Name string
	Kind string
}

// Loader resolves a package by path.
type Loader interface {
	Load(ctx context.Context, path string) (Module, error)
}

// Module is a loaded package.
type Module interface {
	Path() string
	Lookup(name string) (Symbol, error)
}

// Enumerator is implemented by modules that can list their exports.
type Enumerator interface {
	Symbols() ([]Symbol, error)
}

// LoaderOptions configures the loaders built by NewLoader.
type LoaderOptions struct {
	// Dir is the directory package patterns are resolved from.
	Dir string
	// Tags are build tags applied while loading.
	Tags []string
}

// NewLoader returns the loader registered under name. An empty name selects
// the packages loader.
func NewLoader(name string, opts LoaderOptions) (Loader, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LoaderPackages:
		return &PackagesLoader{Dir: opts.Dir, Tags: opts.Tags}, nil
	case LoaderPlugin:
		return &PluginLoader{Dir: opts.Dir}, nil
	default:
		return nil, errors.Errorf("unknown loader %q, expected %q or %q", name, LoaderPackages, LoaderPlugin)
	}
}

// LoaderNames lists the loaders NewLoader understands.
func LoaderNames() []string {
	return []string{LoaderPackages, LoaderPlugin}
}

// StaticLoader serves modules from an in-memory registry. It lets programs
// that link their dependencies statically run the same probe against a
// known export table.
type StaticLoader struct {
	modules map[string]map[string]string
}

// NewStaticLoader returns an empty StaticLoader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{modules: make(map[string]map[string]string)}
}

// Register records path with the given exports, keyed by name with the
// symbol kind as value. Registering a path twice merges the exports.
func (s *StaticLoader) Register(path string, exports map[string]string) *StaticLoader {
	mod, ok := s.modules[path]
	if !ok {
		mod = make(map[string]string, len(exports))
		s.modules[path] = mod
	}
	for name, kind := range exports {
		mod[name] = kind
	}
	return s
}

// Load implements Loader.
func (s *StaticLoader) Load(ctx context.Context, path string) (Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	exports, ok := s.modules[path]
	if !ok {
		return nil, errors.Errorf("no module named %q", path)
	}
	return staticModule{path: path, exports: exports}, nil
}

type staticModule struct {
	path    string
	exports map[string]string
}

func (m staticModule) Path() string {
	return m.path
}

func (m staticModule) Lookup(name string) (Symbol, error) {
	kind, ok := m.exports[name]
	if !ok {
		return Symbol{}, errors.Errorf("module %q has no attribute %q", m.path, name)
	}
	return Symbol{Name: name, Kind: kind}, nil
}

func (m staticModule) Symbols() ([]Symbol, error) {
	syms := make([]Symbol, 0, len(m.exports))
	for name, kind := range m.exports {
		syms = append(syms, Symbol{Name: name, Kind: kind})
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms, nil
}
