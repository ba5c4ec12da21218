package probe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() *StaticLoader {
	return NewStaticLoader().Register("retrievers", map[string]string{
		"Retriever": "type",
		"New":       "func",
	})
}

type panicLoader struct{}

func (panicLoader) Load(context.Context, string) (Module, error) {
	panic("import side effect exploded")
}

type panicModule struct{}

func (panicModule) Path() string { return "panicky" }

func (panicModule) Lookup(string) (Symbol, error) {
	panic("lookup exploded")
}

type moduleLoader struct{ mod Module }

func (l moduleLoader) Load(context.Context, string) (Module, error) { return l.mod, nil }

type errLoader struct{ err error }

func (l errLoader) Load(context.Context, string) (Module, error) { return nil, l.err }

func TestRun(t *testing.T) {
	tests := []struct {
		name       string
		loader     Loader
		pkg        string
		symbol     string
		wantState  State
		wantExit   int
		wantPrefix string
	}{
		{
			name:       "package and symbol present",
			loader:     testLoader(),
			pkg:        "retrievers",
			symbol:     "Retriever",
			wantState:  OK,
			wantExit:   ExitOK,
			wantPrefix: "Smoke OK",
		},
		{
			name:       "package missing",
			loader:     testLoader(),
			pkg:        "missing",
			symbol:     "Retriever",
			wantState:  ModuleFail,
			wantExit:   ExitModuleFail,
			wantPrefix: "Import failed: ",
		},
		{
			name:       "symbol renamed",
			loader:     testLoader(),
			pkg:        "retrievers",
			symbol:     "SuperRetriever",
			wantState:  SymbolFail,
			wantExit:   ExitSymbolFail,
			wantPrefix: "Symbol import failed: ",
		},
		{
			name:       "loader panics",
			loader:     panicLoader{},
			pkg:        "anything",
			symbol:     "X",
			wantState:  ModuleFail,
			wantExit:   ExitModuleFail,
			wantPrefix: "Import failed: ",
		},
		{
			name:       "lookup panics",
			loader:     moduleLoader{mod: panicModule{}},
			pkg:        "panicky",
			symbol:     "X",
			wantState:  SymbolFail,
			wantExit:   ExitSymbolFail,
			wantPrefix: "Symbol import failed: ",
		},
		{
			name:       "loader returns nil module",
			loader:     moduleLoader{},
			pkg:        "ghost",
			symbol:     "X",
			wantState:  ModuleFail,
			wantExit:   ExitModuleFail,
			wantPrefix: "Import failed: ",
		},
		{
			name:       "nil loader",
			loader:     nil,
			pkg:        "retrievers",
			symbol:     "Retriever",
			wantState:  ModuleFail,
			wantExit:   ExitModuleFail,
			wantPrefix: "Import failed: ",
		},
		{
			name:       "empty package path",
			loader:     testLoader(),
			pkg:        "",
			symbol:     "Retriever",
			wantState:  ModuleFail,
			wantExit:   ExitModuleFail,
			wantPrefix: "Import failed: ",
		},
		{
			name:       "empty symbol",
			loader:     testLoader(),
			pkg:        "retrievers",
			symbol:     "",
			wantState:  SymbolFail,
			wantExit:   ExitSymbolFail,
			wantPrefix: "Symbol import failed: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.loader, tt.pkg, tt.symbol).Run(context.Background())

			assert.Equal(t, tt.wantState, res.State)
			assert.True(t, res.State.Terminal())
			assert.Equal(t, tt.wantExit, res.ExitCode())
			assert.True(t, strings.HasPrefix(res.Message(), tt.wantPrefix), "message %q", res.Message())
			assert.NotContains(t, res.Message(), "\n")
			assert.Equal(t, tt.pkg, res.Package)
			assert.Equal(t, tt.symbol, res.Symbol)
		})
	}
}

func TestRun_errorKinds(t *testing.T) {
	loader := testLoader()

	res := New(loader, "missing", "Retriever").Run(context.Background())
	var modErr *ModuleLoadError
	require.ErrorAs(t, res.Err, &modErr)
	assert.Equal(t, "missing", modErr.Path)

	var symErr *SymbolResolutionError
	assert.False(t, errors.As(res.Err, &symErr))

	res = New(loader, "retrievers", "Gone").Run(context.Background())
	require.ErrorAs(t, res.Err, &symErr)
	assert.Equal(t, "Gone", symErr.Symbol)
	assert.Contains(t, res.Message(), `"Gone"`)
	assert.False(t, errors.As(res.Err, &modErr))
}

func TestRun_idempotent(t *testing.T) {
	p := New(testLoader(), "retrievers", "Missing")

	first := p.Run(context.Background())
	for i := 0; i < 5; i++ {
		again := p.Run(context.Background())
		assert.Equal(t, first.State, again.State)
		assert.Equal(t, first.Message(), again.Message())
	}
}

func TestRun_logsTransitions(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)

	New(testLoader(), "retrievers", "New", WithLogger(&l)).Run(context.Background())

	out := buf.String()
	for _, state := range []string{"CHECK_MODULE", "CHECK_SYMBOL", `"OK"`} {
		assert.Contains(t, out, state)
	}
}

func TestRun_canceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(testLoader(), "retrievers", "Retriever").Run(ctx)
	assert.Equal(t, ModuleFail, res.State)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestMessage_multilineError(t *testing.T) {
	res := New(errLoader{err: errors.New("first\nsecond\r\n  third")}, "p", "S").Run(context.Background())

	assert.Equal(t, `Import failed: cannot load "p": first; second; third`, res.Message())
}

func TestMessage_nilError(t *testing.T) {
	assert.Equal(t, "Import failed: unknown error", Result{State: ModuleFail}.Message())
	assert.Equal(t, "Symbol import failed: unknown error", Result{State: SymbolFail}.Message())
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		CheckModule: "CHECK_MODULE",
		CheckSymbol: "CHECK_SYMBOL",
		OK:          "OK",
		ModuleFail:  "MODULE_FAIL",
		SymbolFail:  "SYMBOL_FAIL",
		State(42):   "State(42)",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.String())
	}
	assert.False(t, CheckModule.Terminal())
	assert.False(t, CheckSymbol.Terminal())
}
