package probe

import (
	"context"
	"path/filepath"
	"plugin"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// PluginLoader opens Go plugins (built with -buildmode=plugin) by file path.
type PluginLoader struct {
	// Dir is joined to relative plugin paths.
	Dir string
}

// Load implements Loader.
func (l *PluginLoader) Load(ctx context.Context, path string) (Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if l.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.Dir, path)
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &pluginModule{path: path, p: p}, nil
}

type pluginModule struct {
	path string
	p    *plugin.Plugin
}

func (m *pluginModule) Path() string {
	return m.path
}

func (m *pluginModule) Lookup(name string) (Symbol, error) {
	if strings.Contains(name, ".") {
		return Symbol{}, errors.Errorf("plugin lookups take package level names only, got %q", name)
	}
	sym, err := m.p.Lookup(name)
	if err != nil {
		return Symbol{}, errors.WithStack(err)
	}
	kind := "var"
	if reflect.TypeOf(sym).Kind() == reflect.Func {
		kind = "func"
	}
	return Symbol{Name: name, Kind: kind}, nil
}
