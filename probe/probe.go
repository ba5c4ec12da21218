package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Exit codes returned by Result.ExitCode.
const (
	ExitOK         = 0
	ExitModuleFail = 1
	ExitSymbolFail = 2
)

// State is a step of a probe run.
type State int

const (
	// CheckModule is the initial state, before the package is loaded.
	CheckModule State = iota
	// CheckSymbol is entered once the package loaded.
	CheckSymbol
	// OK means both the package and the symbol resolved.
	OK
	// ModuleFail means the package could not be loaded.
	ModuleFail
	// SymbolFail means the package loaded but the symbol did not resolve.
	SymbolFail
)

func (s State) String() string {
	switch s {
	case CheckModule:
		return "CHECK_MODULE"
	case CheckSymbol:
		return "CHECK_SYMBOL"
	case OK:
		return "OK"
	case ModuleFail:
		return "MODULE_FAIL"
	case SymbolFail:
		return "SYMBOL_FAIL"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == OK || s == ModuleFail || s == SymbolFail
}

// Result is the outcome of a probe run.
type Result struct {
	State   State
	Package string
	Symbol  string
	Err     error
}

// ExitCode maps the result to the process exit status.
func (r Result) ExitCode() int {
	switch r.State {
	case OK:
		return ExitOK
	case SymbolFail:
		return ExitSymbolFail
	default:
		return ExitModuleFail
	}
}

// Message is the single status line for the result, without a trailing newline.
func (r Result) Message() string {
	switch r.State {
	case OK:
		return "Smoke OK"
	case SymbolFail:
		return "Symbol import failed: " + oneLine(r.Err)
	default:
		return "Import failed: " + oneLine(r.Err)
	}
}

// oneLine flattens a possibly multi-line error so stdout stays one line.
func oneLine(err error) string {
	if err == nil {
		return "unknown error"
	}
	lines := strings.FieldsFunc(err.Error(), func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "; ")
}

// Prober runs the two step check against a Loader.
type Prober struct {
	loader  Loader
	pkgPath string
	symbol  string
	log     *zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *zerolog.Logger) Option {
	return func(p *Prober) {
		p.log = l
	}
}

// New returns a Prober that loads pkgPath with loader and resolves symbol.
func New(loader Loader, pkgPath, symbol string, opts ...Option) *Prober {
	nop := zerolog.Nop()
	p := &Prober{
		loader:  loader,
		pkgPath: pkgPath,
		symbol:  symbol,
		log:     &nop,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs the check. It always returns a terminal Result.
func (p *Prober) Run(ctx context.Context) Result {
	res := Result{State: CheckModule, Package: p.pkgPath, Symbol: p.symbol}
	p.log.Debug().Str("state", res.State.String()).Str("package", p.pkgPath).Msg("loading package")

	mod, err := Load(ctx, p.loader, p.pkgPath)
	if err != nil {
		res.State = ModuleFail
		res.Err = err
		p.log.Debug().Stack().Err(errors.Unwrap(err)).Str("state", res.State.String()).Send()
		return res
	}

	res.State = CheckSymbol
	p.log.Debug().Str("state", res.State.String()).Str("symbol", p.symbol).Msg("resolving symbol")

	sym, err := p.lookup(mod)
	if err != nil {
		res.State = SymbolFail
		res.Err = &SymbolResolutionError{Path: p.pkgPath, Symbol: p.symbol, Err: err}
		p.log.Debug().Stack().Err(err).Str("state", res.State.String()).Send()
		return res
	}

	res.State = OK
	p.log.Debug().Str("state", res.State.String()).Str("kind", sym.Kind).Send()
	return res
}

// Load loads path with loader, converting panics into errors. Failures are
// returned as *ModuleLoadError.
func Load(ctx context.Context, loader Loader, path string) (Module, error) {
	mod, err := load(ctx, loader, path)
	if err != nil {
		return nil, &ModuleLoadError{Path: path, Err: err}
	}
	return mod, nil
}

func load(ctx context.Context, loader Loader, path string) (mod Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, errors.Errorf("panic while loading: %v", r)
		}
	}()
	if loader == nil {
		return nil, errors.New("no loader configured")
	}
	if path == "" {
		return nil, errors.New("empty package path")
	}
	mod, err = loader.Load(ctx, path)
	if err == nil && mod == nil {
		err = errors.Errorf("loader returned no module for %q", path)
	}
	return mod, err
}

func (p *Prober) lookup(mod Module) (sym Symbol, err error) {
	defer func() {
		if r := recover(); r != nil {
			sym, err = Symbol{}, errors.Errorf("panic while resolving: %v", r)
		}
	}()
	if p.symbol == "" {
		return Symbol{}, errors.New("empty symbol name")
	}
	return mod.Lookup(p.symbol)
}
