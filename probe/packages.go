package probe

import (
	"context"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
)

// PackagesLoader loads Go packages by import path with golang.org/x/tools/go/packages,
// the same way the go command would resolve them from Dir.
type PackagesLoader struct {
	Dir  string
	Tags []string
	// Env overrides the environment of the underlying go command. Nil means
	// the current process environment.
	Env []string
}

// Load implements Loader.
func (l *PackagesLoader) Load(ctx context.Context, path string) (Module, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedTypes,
		Dir:     l.Dir,
		Env:     l.Env,
	}
	if len(l.Tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(l.Tags, ",")}
	}

	pkgs, err := packages.Load(cfg, path)
	if err != nil {
		return nil, errors.Wrap(err, "go/packages")
	}
	if len(pkgs) != 1 {
		return nil, errors.Errorf("pattern %q matched %d packages, expected exactly one", path, len(pkgs))
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		msgs := make([]string, len(pkg.Errors))
		for i, e := range pkg.Errors {
			msgs[i] = e.Msg
		}
		return nil, errors.New(strings.Join(msgs, "; "))
	}
	if pkg.Types == nil {
		return nil, errors.Errorf("no type information for %q", path)
	}
	return &typesModule{pkg: pkg.Types}, nil
}

type typesModule struct {
	pkg *types.Package
}

func (m *typesModule) Path() string {
	return m.pkg.Path()
}

// Lookup resolves a package level name, or a Type.Member selector.
func (m *typesModule) Lookup(name string) (Symbol, error) {
	head, member, selector := strings.Cut(name, ".")

	// export data carries no unexported package level names, so decide by spelling
	if !token.IsExported(head) {
		return Symbol{}, errors.Wrapf(ErrNotExported, "%s.%s", m.pkg.Name(), head)
	}
	obj := m.pkg.Scope().Lookup(head)
	if obj == nil {
		return Symbol{}, errors.Errorf("package %s has no member %q", m.pkg.Path(), head)
	}
	if !selector {
		return Symbol{Name: name, Kind: kindOf(obj)}, nil
	}

	tn, ok := obj.(*types.TypeName)
	if !ok {
		return Symbol{}, errors.Errorf("%s.%s is a %s, not a type", m.pkg.Name(), head, kindOf(obj))
	}
	if !token.IsExported(member) {
		return Symbol{}, errors.Wrapf(ErrNotExported, "%s.%s", head, member)
	}

	found, _, _ := types.LookupFieldOrMethod(tn.Type(), true, m.pkg, member)
	switch found.(type) {
	case *types.Func:
		return Symbol{Name: name, Kind: "method"}, nil
	case *types.Var:
		return Symbol{Name: name, Kind: "field"}, nil
	default:
		return Symbol{}, errors.Errorf("type %s.%s has no field or method %q", m.pkg.Name(), head, member)
	}
}

// Symbols lists the exported package level names in sorted order.
func (m *typesModule) Symbols() ([]Symbol, error) {
	scope := m.pkg.Scope()
	var syms []Symbol
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		syms = append(syms, Symbol{Name: name, Kind: kindOf(obj)})
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].Name < syms[j].Name })
	return syms, nil
}

func kindOf(obj types.Object) string {
	switch obj.(type) {
	case *types.TypeName:
		return "type"
	case *types.Func:
		return "func"
	case *types.Var:
		return "var"
	case *types.Const:
		return "const"
	default:
		return "symbol"
	}
}
