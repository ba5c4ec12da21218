/*
Copyright © 2024 Jake Rogers <code@supportoss.org>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/JakeTRogers/smokeprobe/logger"
	"github.com/JakeTRogers/smokeprobe/probe"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultPackage = "github.com/JakeTRogers/smokeprobe/probe"
	defaultSymbol  = "Prober"
	configName     = ".smokeprobe"
	configType     = "yaml"

	// exitUsage is returned for command line or configuration mistakes, kept
	// apart from the probe's own 0/1/2.
	exitUsage = 64
)

var (
	colorEnabled               bool
	packagePath                string
	symbolName                 string
	loaderName                 string
	workDir                    string
	buildTags                  []string
	v                          = viper.New()
	l                          = logger.GetLogger()
	replaceHyphenWithCamelCase = false
	rootCmd                    = NewRootCmd()
)

// exitError carries a probe exit code out of a command's RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// getConfigPath returns the directory searched for the config file.
func getConfigPath() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

// initializeConfig sets the log level from the verbose count, reads the config file if one exists and binds the command
// flags to environment variables. The probe never creates or writes the config file.
func initializeConfig(cmd *cobra.Command) error {
	verboseCount, _ := cmd.Flags().GetCount("verbose")
	logger.SetLogLevel(verboseCount)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	configPath := getConfigPath()
	l.Debug().Str("configPath", configPath).Send()
	v.AddConfigPath(configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(err, "reading config")
		}
		l.Debug().Msg("no config file found, using flags and environment")
	}

	// --package binds to SMOKEPROBE_PACKAGE, --symbol to SMOKEPROBE_SYMBOL and so on.
	v.SetEnvPrefix("SMOKEPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	// verbose may have come from the environment or config file
	verboseCount, _ = cmd.Flags().GetCount("verbose")
	logger.SetLogLevel(verboseCount)
	return nil
}

// unboundFlags are cobra's built-in flags, which must not pick up SMOKEPROBE_HELP or SMOKEPROBE_VERSION.
var unboundFlags = map[string]bool{
	"help":    true,
	"version": true,
}

// bindFlags applies viper values (config file or environment) to every flag the user did not set on the command line.
// Slice values are added element by element.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if unboundFlags[f.Name] {
			return
		}
		configName := f.Name
		// viper compares case-insensitively, so only the hyphens need removing for camelCase config keys.
		if replaceHyphenWithCamelCase {
			configName = strings.ReplaceAll(f.Name, "-", "")
		}

		if f.Changed || !v.IsSet(configName) {
			return
		}
		l.Debug().Str("flag", f.Name).Str("configName", configName).Msg("Binding flag to viper config:")

		val := v.Get(configName)
		values := []interface{}{val}
		if arr, ok := val.([]interface{}); ok {
			values = arr
		}
		for _, item := range values {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", item)); err != nil && bindErr == nil {
				bindErr = errors.Wrapf(err, "config value for %q", f.Name)
			}
		}
	})
	return bindErr
}

// newLoader builds the loader selected by --loader. Tests swap it out.
var newLoader = func() (probe.Loader, error) {
	return probe.NewLoader(loaderName, probe.LoaderOptions{
		Dir:  workDir,
		Tags: buildTags,
	})
}

// formatResult renders the status line, colored green or red when color is enabled.
func formatResult(res probe.Result, colorEnabled bool) string {
	msg := res.Message()
	if !colorEnabled {
		return msg
	}
	if res.State == probe.OK {
		return text.Colors{text.FgHiGreen, text.Bold}.Sprint(msg)
	}
	return text.Colors{text.FgHiRed, text.Bold}.Sprint(msg)
}

// printResult writes the single status line to w and returns the error that carries the exit code, or nil on success.
func printResult(w io.Writer, res probe.Result) error {
	fmt.Fprintln(w, formatResult(res, colorEnabled))
	if code := res.ExitCode(); code != probe.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// runProbe runs the two step check for pkg and symbol with the configured loader.
func runProbe(cmd *cobra.Command, pkg, symbol string) (probe.Result, error) {
	loader, err := newLoader()
	if err != nil {
		return probe.Result{}, err
	}
	l.Info().Str("loader", loaderName).Str("package", pkg).Str("symbol", symbol).Msg("probing")
	res := probe.New(loader, pkg, symbol, probe.WithLogger(l)).Run(cmd.Context())
	l.Info().Str("state", res.State.String()).Int("exit", res.ExitCode()).Send()
	return res, nil
}

func persistentPreRunE(cmd *cobra.Command, args []string) error {
	return initializeConfig(cmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	res, err := runProbe(cmd, packagePath, symbolName)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

// completeLoader offers the loader names for shell completion.
func completeLoader(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return probe.LoaderNames(), cobra.ShellCompDirectiveNoFileComp
}

// NewRootCmd creates the smokeprobe command with its subcommands.
// Each call returns a fresh instance with flags reset to their defaults.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "smokeprobe",
		Version: "v0.1.0",
		Short:   "Check that a dependency and one of its exported symbols can be loaded",
		Long: `smokeprobe is a smoke test for dependencies. It loads a package, then resolves one exported symbol from it,
and prints a single status line:

  Smoke OK                            exit 0
  Import failed: <reason>             exit 1, the package could not be loaded
  Symbol import failed: <reason>      exit 2, the package loaded but the symbol did not resolve

CI pipelines can use the exit code to tell a missing or broken dependency from a changed API surface. Logs go to
stderr, so stdout only ever holds the status line.

Every flag can also be set with a SMOKEPROBE_ environment variable (SMOKEPROBE_PACKAGE, SMOKEPROBE_SYMBOL, ...) or in
an optional config file, which is never created or modified:

  - Linux/Mac: $HOME/.config/.smokeprobe.yaml
  - Windows: %APPDATA%\.smokeprobe.yaml

Examples:

  # Probe the default target:
  $ smokeprobe

  # Probe a package resolved from the current module:
  $ smokeprobe --package github.com/spf13/cobra --symbol Command

  # Probe a method:
  $ smokeprobe --package strings --symbol Builder.WriteString

  # Probe a compiled Go plugin:
  $ smokeprobe --loader plugin --package ./retriever.so --symbol NewRetriever`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: persistentPreRunE,
		RunE:              runRoot,
	}

	cmd.SetVersionTemplate(`{{printf "smokeprobe %s\n" .Version}}`)
	cmd.PersistentFlags().StringVarP(&packagePath, "package", "p", defaultPackage, "``package import path, or plugin file with --loader plugin")
	cmd.PersistentFlags().StringVarP(&symbolName, "symbol", "s", defaultSymbol, "``exported symbol to resolve. Type.Member selectors work with the packages loader.")
	cmd.PersistentFlags().StringVarP(&loaderName, "loader", "l", probe.LoaderPackages, "``loader to use: packages or plugin")
	cmd.PersistentFlags().StringVarP(&workDir, "dir", "d", "", "``directory packages are resolved from. Defaults to the current directory.")
	cmd.PersistentFlags().StringSliceVarP(&buildTags, "tags", "t", nil, "``build tags applied while loading. Can be used multiple times.")
	cmd.PersistentFlags().BoolVarP(&colorEnabled, "color", "c", false, "colorize the status line")
	cmd.PersistentFlags().CountP("verbose", "v", "``increase logging verbosity, 1=warn, 2=info, 3=debug, 4=trace")
	if err := cmd.RegisterFlagCompletionFunc("loader", completeLoader); err != nil {
		l.Error().Err(err).Send()
	}

	cmd.AddCommand(NewListCmd(), NewWizardCmd(v))
	return cmd
}

// exitCode maps an error returned by the command tree to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return probe.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	l.Error().Err(err).Send()
	return exitUsage
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	return exitCode(rootCmd.Execute())
}
