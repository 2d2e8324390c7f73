// Package cli implements the dtiscope command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/dtiscope/internal/app"
	"github.com/turtacn/dtiscope/internal/config"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats accepted by --output.
const (
	OutputText  = "text"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputTable = "table"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	NoColor      bool
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	ConfigPath   string
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	appOnce sync.Once
	app     *app.App
	appErr  error
}

// App assembles the runtime on first use.
func (c *CLIContext) App(ctx context.Context) (*app.App, error) {
	c.appOnce.Do(func() {
		c.app, c.appErr = app.New(ctx, c.Config, c.Logger)
	})
	return c.app, c.appErr
}

// Close releases the runtime if it was built.
func (c *CLIContext) Close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dtiscope",
		Short: "dtiscope: drug and protein lookup with binding affinity analysis",
		Long: "dtiscope looks up compounds in PubChem and proteins in UniProt, resolves them\n" +
			"to SMILES and amino-acid sequences, and scores drug-target interaction.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				_ = cliCtx.Logger.Sync()
				return cliCtx.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./dtiscope.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, yaml, table)")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "overall operation timeout")

	cmd.AddCommand(
		newSearchCmd(),
		newResolveCmd(),
		newAnalyzeCmd(),
		newServeCmd(),
		newEventsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch opts.OutputFormat {
	case OutputText, OutputJSON, OutputYAML, OutputTable:
	default:
		return errors.New(errors.ErrCodeBadRequest, "unsupported output format").WithDetail(opts.OutputFormat)
	}
	if opts.NoColor {
		color.NoColor = true
	}

	path := resolveConfigPath(opts.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.LogLevel != "" {
		level, err := logging.ParseLevel(opts.LogLevel)
		if err != nil {
			return err
		}
		cfg.Log.Level = level
	}

	logger, err := initLogger(cfg, cmd.Name() == "serve", opts.LogLevel != "")
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		ConfigPath:   path,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Timeout:      opts.Timeout,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// resolveConfigPath returns explicit, else the first existing default
// location, else "" (environment and defaults only).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidates := []string{"./dtiscope.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".dtiscope", "config.yaml"))
	}
	candidates = append(candidates, "/etc/dtiscope/config.yaml")
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// initLogger writes to stderr so stdout carries only command output.  The
// server keeps the configured format; one-shot commands use console and
// default to warn unless --log-level is given.
func initLogger(cfg *config.Config, server, explicitLevel bool) (logging.Logger, error) {
	lc := cfg.Log
	if !server {
		lc.Format = "console"
		lc.OutputPaths = []string{"stderr"}
		if !explicitLevel {
			lc.Level = logging.LevelWarn
		}
	}
	return logging.NewLogger(lc)
}

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not initialised")
	}
	return cliCtx, nil
}

// commandContext bounds the command by --timeout.
func commandContext(cmd *cobra.Command, cliCtx *CLIContext) (context.Context, context.CancelFunc) {
	if cliCtx.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), cliCtx.Timeout)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// tableProvider is implemented by results that render as a table.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult writes data in the selected output format.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := OutputText
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}

	out := cmd.OutOrStdout()
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case OutputTable:
		if tp, ok := data.(tableProvider); ok {
			table := tablewriter.NewWriter(out)
			table.Header(tp.TableHeaders())
			for _, row := range tp.TableRows() {
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		}
	}

	switch v := data.(type) {
	case string:
		fmt.Fprintln(out, v)
	case fmt.Stringer:
		fmt.Fprintln(out, v.String())
	default:
		fmt.Fprintf(out, "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

//Personal.AI order the ending
