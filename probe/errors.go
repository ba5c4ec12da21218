package probe

import "fmt"

// ModuleLoadError means the dependency itself could not be loaded: missing,
// broken or incompatible.
type ModuleLoadError struct {
	Path string
	Err  error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("cannot load %q: %v", e.Path, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}

// SymbolResolutionError means the dependency loaded but the expected export
// is absent or could not be resolved.
type SymbolResolutionError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *SymbolResolutionError) Error() string {
	return fmt.Sprintf("cannot import name %q from %q: %v", e.Symbol, e.Path, e.Err)
}

func (e *SymbolResolutionError) Unwrap() error {
	return e.Err
}
