// Copyright © 2025 Jake Rogers <code@supportoss.org>
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/JakeTRogers/smokeprobe/logger"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// field identifies an input of the wizard form.
type field int

const (
	packageField field = iota
	symbolField
	fieldCount
)

// wizardModel is the Bubbletea model for the probe target form.
type wizardModel struct {
	inputs [fieldCount]textinput.Model
	focus  field
	err    string

	// Exit state
	quitting  bool
	submitted bool
}

// Key bindings
type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("⇧tab", "previous field")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run probe")),
	Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// Styles
var (
	formStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purple/blue
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")). // Gray
			Width(9)

	focusedLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")). // Bright pink
				Bold(true).
				Width(9)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// initWizardModel creates a new wizard model prefilled with the current target.
func initWizardModel(pkg, symbol string) wizardModel {
	var m wizardModel
	placeholders := [fieldCount]string{defaultPackage, defaultSymbol}
	values := [fieldCount]string{pkg, symbol}

	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = "› "
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 256
		ti.Width = 60
		ti.SetValue(values[i])
		ti.CursorEnd()
		m.inputs[i] = ti
	}
	m.inputs[packageField].Focus()
	return m
}

// target returns the trimmed package and symbol entered in the form.
func (m wizardModel) target() (string, string) {
	return strings.TrimSpace(m.inputs[packageField].Value()), strings.TrimSpace(m.inputs[symbolField].Value())
}

// setFocus moves focus to f, wrapping around the form.
func (m *wizardModel) setFocus(f field) tea.Cmd {
	f = (f + fieldCount) % fieldCount
	m.inputs[m.focus].Blur()
	m.focus = f
	return m.inputs[f].Focus()
}

// Init implements tea.Model
func (m wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Next):
			cmd := m.setFocus(m.focus + 1)
			return m, cmd

		case key.Matches(msg, keys.Prev):
			cmd := m.setFocus(m.focus - 1)
			return m, cmd

		case key.Matches(msg, keys.Submit):
			pkg, symbol := m.target()
			if pkg == "" || symbol == "" {
				missing := packageField
				m.err = "package is required"
				if pkg != "" {
					missing = symbolField
					m.err = "symbol is required"
				}
				cmd := m.setFocus(missing)
				return m, cmd
			}
			m.submitted = true
			return m, tea.Quit
		}
		m.err = ""
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View implements tea.Model
func (m wizardModel) View() string {
	if m.quitting || m.submitted {
		return ""
	}

	labels := [fieldCount]string{"Package", "Symbol"}
	var b strings.Builder
	b.WriteString(titleStyle.Render("smokeprobe"))
	b.WriteString("\n")
	for i := range m.inputs {
		style := labelStyle
		if field(i) == m.focus {
			style = focusedLabelStyle
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, style.Render(labels[i]), m.inputs[i].View()))
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}

	return formStyle.Render(b.String()) + "\n" + m.renderHelp()
}

func (m wizardModel) renderHelp() string {
	parts := make([]string, 0, 4)
	for _, k := range []key.Binding{keys.Next, keys.Prev, keys.Submit, keys.Quit} {
		parts = append(parts, fmt.Sprintf("%s: %s", k.Help().Key, k.Help().Desc))
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

// withLoggingDisabled silences logging while fn owns the terminal, then restores the level for verboseCount.
func withLoggingDisabled(log *zerolog.Logger, verboseCount int, fn func() error) error {
	log.Warn().Msg("disabling logging for interactive wizard")
	logger.Disable()
	defer logger.SetLogLevel(verboseCount)
	return fn()
}

// runWizard starts the interactive form. The TUI draws on stderr so stdout keeps only the status line.
// It returns ok=false if the user cancelled.
func runWizard(v *viper.Viper, log *zerolog.Logger, verboseCount int) (pkg, symbol string, ok bool, err error) {
	// flags already carry the environment and config values, see bindFlags
	log.Debug().Str("configFile", v.ConfigFileUsed()).Str("package", packagePath).Str("symbol", symbolName).Msg("wizard defaults")

	var finalModel tea.Model
	err = withLoggingDisabled(log, verboseCount, func() error {
		p := tea.NewProgram(initWizardModel(packagePath, symbolName), tea.WithOutput(os.Stderr))
		var runErr error
		finalModel, runErr = p.Run()
		return runErr
	})
	if err != nil {
		return "", "", false, errors.Wrap(err, "error running wizard")
	}

	m, isModel := finalModel.(wizardModel)
	if !isModel {
		return "", "", false, errors.Errorf("unexpected model type: %T", finalModel)
	}
	if !m.submitted {
		return "", "", false, nil
	}

	pkg, symbol = m.target()
	return pkg, symbol, true, nil
}

// NewWizardCmd creates and returns a new wizard command.
// Each call returns a fresh instance for test isolation.
func NewWizardCmd(v *viper.Viper) *cobra.Command {
	log := logger.GetLogger()

	wizardCmd := &cobra.Command{
		Use:   "wizard",
		Short: "Interactive probe target form",
		Long: `Launch an interactive form to enter the package and symbol to probe, then run the probe.

The form is prefilled from --package and --symbol (or their environment and config equivalents). It is drawn on
stderr, and the result is printed on stdout with the same exit codes as the root command.

Navigation:
  - Tab / Shift+Tab: Switch between fields
  - Enter: Run the probe
  - Esc / Ctrl+C: Cancel

Example:
  $ smokeprobe wizard`,
		Args: cobra.NoArgs,
	}

	// runWizardCmd executes the wizard command.
	runWizardCmd := func(cmd *cobra.Command, args []string) error {
		// a bad --loader is reported before the TUI takes over the terminal
		if _, err := newLoader(); err != nil {
			return err
		}

		verboseCount, _ := cmd.Flags().GetCount("verbose")
		pkg, symbol, ok, err := runWizard(v, log, verboseCount)
		if err != nil {
			return errors.Wrap(err, "wizard failed")
		}
		if !ok {
			return nil
		}

		res, err := runProbe(cmd, pkg, symbol)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	}

	wizardCmd.RunE = runWizardCmd

	return wizardCmd
}
