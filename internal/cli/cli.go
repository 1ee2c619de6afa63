// Package cli implements the psi-export command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/config"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	_ "github.com/brainysmurf/PowerSchoolIntegrator/internal/layout/moodle" // Register built-in layouts
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/logging"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/records"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/service"
)

// version is set at build time with -ldflags.
var version = "development version"

// app carries state shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	envFile     string
	layoutsFile string

	cfg *config.Config
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(err))
		return 1
	}
	return 0
}

// errorText prefers the user-facing message for errors the service knows.
func errorText(err error) string {
	if msg := service.MapError(err); msg.Code != "ERR000" {
		return fmt.Sprintf("%s (Code: %s). %s\n  %v", msg.Message, msg.Code, msg.Action, err)
	}
	return err.Error()
}

// NewRootCommand builds the command tree reading from stdin and writing
// results to stdout. Logs go to stderr.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return newRootCommand(&app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: os.Getenv})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "psi-export",
		Short:         "Render Moodle bulk-upload CSV files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	rootCmd.SetVersionTemplate(`{{.Version}}` + "\n")
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	rootCmd.PersistentFlags().StringVar(
		&a.envFile, "env-file", ".env", "environment file to load if present",
	)
	rootCmd.PersistentFlags().StringVar(
		&a.layoutsFile, "layouts", "", "TOML file with extra layouts (overrides EXPORT_LAYOUTS_FILE)",
	)

	rootCmd.AddCommand(
		a.layoutsCommand(),
		a.renderCommand(),
		a.pgCommand(),
		a.serveCommand(),
	)
	return rootCmd
}

// setup loads the environment, configuration, logging and extra layouts.
func (a *app) setup() error {
	envErr := godotenv.Overload(a.envFile)

	cfg, err := config.LoadFrom(a.getenv)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logging.Setup(a.stderr, cfg.Logging.Level, cfg.Logging.Format)

	if envErr != nil {
		slog.Debug("no env file loaded", "file", a.envFile, "error", envErr)
	} else {
		slog.Debug("loaded env file (overwriting existing env vars)", "file", a.envFile)
	}

	path := a.layoutsFile
	if path == "" {
		path = cfg.Export.LayoutsFile
	}
	if path == "" {
		return nil
	}
	added, err := layout.RegisterFile(path)
	if err != nil {
		return err
	}
	slog.Debug("layouts file registered", "file", path, "layouts", len(added))
	return nil
}

// cliService is a service whose output paths are taken as given.
func (a *app) cliService() *service.Service {
	opts := service.OptionsFromConfig(a.cfg.Export)
	opts.OutputDir = ""
	opts.HistorySize = 0
	return service.New(opts)
}

func (a *app) layoutsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "List available layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := layout.All()
			switch format {
			case "json":
				type view struct {
					layout.Info
					Headers []string `json:"headers"`
				}
				views := make([]view, len(all))
				for i, l := range all {
					views[i] = view{Info: l.Info, Headers: l.Columns()}
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			case "table":
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tGROUP\tLABEL\tCOLUMNS")
				for _, l := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", l.Info.Key, l.Info.Group, l.Info.Label, len(l.Headers))
				}
				return tw.Flush()
			default:
				return fmt.Errorf("invalid format %q (must be \"table\" or \"json\")", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", `output format ("table" or "json")`)
	return cmd
}

func (a *app) renderCommand() *cobra.Command {
	var layoutKey, input, format, out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a YAML or JSON record file with a layout",
		Long: "Render reads a list of records and prints the CSV text, or writes it\n" +
			"to --out. Use --input - to read from standard input (requires --format).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := a.readRecords(input, format)
			if err != nil {
				return err
			}
			return a.export(cmd.Context(), layoutKey, recs, out)
		},
	}
	cmd.Flags().SortFlags = false
	cmd.Flags().StringVarP(&layoutKey, "layout", "l", "", "layout key (see \"layouts\")")
	cmd.Flags().StringVarP(&input, "input", "i", "", "record file, or - for standard input")
	cmd.Flags().StringVarP(&format, "format", "f", "", `input format ("yaml" or "json"); defaults to the file extension`)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the CSV here instead of standard output")
	_ = cmd.MarkFlagRequired("layout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) readRecords(input, format string) ([]records.Record, error) {
	if input != "-" && format == "" {
		return records.LoadFile(input)
	}

	f, err := records.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	var r io.Reader = a.stdin
	if input != "-" {
		file, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("open records: %w", err)
		}
		defer file.Close()
		r = file
	}
	return records.Decode(r, f)
}

// export runs one job. Without out the text goes to stdout exactly as
// rendered, with no trailing newline.
func (a *app) export(ctx context.Context, layoutKey string, recs []records.Record, out string) error {
	res, err := a.cliService().Export(ctx, service.Request{
		Layout:  layoutKey,
		Records: recs,
		Path:    out,
	})
	if err != nil {
		if res != nil {
			// Rendering worked but the file could not be written.
			_, _ = res.WriteTo(a.stdout)
		}
		return err
	}

	if out == "" {
		_, err = res.WriteTo(a.stdout)
		return err
	}

	fmt.Fprintf(a.stderr, "wrote %d rows, %d columns to %s\n", res.Rows, res.Columns, res.Path)
	return nil
}
