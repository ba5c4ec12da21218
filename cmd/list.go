// Copyright © 2025 Jake Rogers <code@supportoss.org>
package cmd

import (
	"io"

	"github.com/JakeTRogers/smokeprobe/probe"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// configureColoredTable applies the colored table style.
func configureColoredTable(t table.Writer) {
	t.SetStyle(table.StyleColoredBlackOnBlueWhite)
	t.Style().Title.Colors = text.Colors{text.BgHiBlue, text.FgHiWhite}
}

// configurePlainTable applies the plain rounded table style.
func configurePlainTable(t table.Writer) {
	t.SetStyle(table.StyleRounded)
	t.Style().Options.DoNotColorBordersAndSeparators = true
	t.Style().Options.SeparateColumns = true
	t.Style().Options.SeparateRows = false
}

// printSymbolTable renders the exported symbols of pkg as a table on w.
func printSymbolTable(w io.Writer, pkg string, symbols []probe.Symbol, colorEnabled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if colorEnabled {
		configureColoredTable(t)
	} else {
		configurePlainTable(t)
	}
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("Exported symbols of %s", pkg)
	t.AppendHeader(table.Row{"#", "Symbol", "Kind"})
	for i, s := range symbols {
		t.AppendRow(table.Row{i + 1, s.Name, s.Kind})
	}
	t.AppendFooter(table.Row{"", "Total", len(symbols)})
	t.Render()
}

func runList(cmd *cobra.Command, args []string) error {
	pkg := packagePath
	if len(args) == 1 {
		pkg = args[0]
	}

	loader, err := newLoader()
	if err != nil {
		return err
	}

	mod, err := probe.Load(cmd.Context(), loader, pkg)
	if err != nil {
		return printResult(cmd.OutOrStdout(), probe.Result{State: probe.ModuleFail, Package: pkg, Err: err})
	}

	enum, ok := mod.(probe.Enumerator)
	if !ok {
		return errors.Errorf("the %s loader cannot list symbols", loaderName)
	}
	symbols, err := enum.Symbols()
	if err != nil {
		return errors.Wrapf(err, "listing symbols of %s", pkg)
	}
	l.Debug().Str("package", pkg).Int("symbols", len(symbols)).Send()

	printSymbolTable(cmd.OutOrStdout(), mod.Path(), symbols, colorEnabled)
	return nil
}

// NewListCmd creates and returns a new list command.
// Each call returns a fresh instance for test isolation.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [package]",
		Short: "List the exported symbols of a package",
		Long: `List the exported package level symbols of a package, to find the right --symbol for a probe.

The package defaults to --package. A package that cannot be loaded is reported the same way the probe reports it,
with "Import failed: <reason>" and exit code 1. Only the packages loader can list symbols.

Example:
  $ smokeprobe list github.com/spf13/cobra`,
		Args: cobra.MaximumNArgs(1),
		RunE: runList,
	}
}
