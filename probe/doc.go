// Package probe checks that a dependency can be loaded and that one of its
// exported symbols resolves.
//
// A probe run is a two step state machine:
//
//	CheckModule -> CheckSymbol -> OK
//	     |              |
//	 ModuleFail     SymbolFail
//
// Every failure is terminal and is reported through a Result, never a panic.
// The Result maps to a single status line and a process exit code so that
// automation can tell a missing dependency (1) from a changed API (2).
package probe
