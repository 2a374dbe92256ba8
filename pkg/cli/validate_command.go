package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/trussci/truss/pkg/config"
	"github.com/trussci/truss/pkg/console"
	"github.com/trussci/truss/pkg/engine"
	"github.com/trussci/truss/pkg/logger"
)

var validateLog = logger.New("cli:validate_command")

// fileReport is one file's outcome, in JSON field order.
type fileReport struct {
	File        string              `json:"file"`
	Valid       bool                `json:"valid"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
	ReadError   string              `json:"read_error,omitempty"`
}

type validateOptions struct {
	jsonOutput  bool
	quiet       bool
	minSeverity string
	watch       bool
	configPath  string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path|glob|-]...",
		Short: "Validate workflow YAML files",
		Long: `Validate one or more workflow files and report diagnostics.

Arguments may be files, directories (searched recursively for .yml/.yaml),
doublestar globs, or '-' for standard input.

Examples:
  truss validate .github/workflows
  truss validate '.github/workflows/**/*.yml'
  truss validate ci.yml --json
  cat ci.yml | truss validate -
  truss validate .github/workflows --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := validateOptions{}
			opts.jsonOutput, _ = cmd.Flags().GetBool("json")
			opts.quiet, _ = cmd.Flags().GetBool("quiet")
			opts.minSeverity, _ = cmd.Flags().GetString("severity")
			opts.watch, _ = cmd.Flags().GetBool("watch")
			opts.configPath, _ = cmd.Flags().GetString("config")
			return runValidate(args, opts)
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	cmd.Flags().BoolP("quiet", "q", false, "Only print diagnostics, no summary")
	cmd.Flags().StringP("severity", "s", "info", "Minimum severity to report (error, warning, info)")
	cmd.Flags().BoolP("watch", "w", false, "Re-validate files when they change")
	cmd.Flags().StringP("config", "c", "", "Path to .truss.yml (default: discovered upward from the working directory)")
	return cmd
}

func severityRank(s string) int {
	switch s {
	case "error":
		return 0
	case "warning":
		return 1
	}
	return 2
}

func runValidate(args []string, opts validateOptions) error {
	if len(args) == 0 {
		return usageErr("no input files: pass files, directories, globs, or '-' for stdin")
	}
	if _, ok := config.ParseSeverity(opts.minSeverity); !ok {
		return usageErr("invalid --severity %q: must be error, warning, or info", opts.minSeverity)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	engineOpts := cfg.EngineOptions()

	files, stdin, err := expandArgs(args, cfg)
	if err != nil {
		return err
	}
	if len(files) == 0 && !stdin {
		return usageErr("no YAML files matched %v", args)
	}
	if opts.watch && (stdin || opts.jsonOutput) {
		return usageErr("--watch cannot be combined with stdin or --json")
	}

	reports := validateFiles(files, stdin, engineOpts)
	filterReports(reports, opts.minSeverity)

	if opts.jsonOutput {
		if err := printJSON(reports); err != nil {
			return ioErr(err)
		}
	} else {
		printText(reports, opts.quiet)
	}

	if opts.watch {
		return watchAndRevalidate(files, engineOpts, opts)
	}
	return exitFor(reports)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, ioErr(err)
		}
		return cfg, nil
	}
	cfg, found, err := config.Discover(".")
	if err != nil {
		return nil, ioErr(err)
	}
	if found != "" {
		validateLog.Printf("using config %s", found)
	}
	return cfg, nil
}

// validateFiles runs the engine over every input, fanning out across
// workers. Each worker builds its own engine; results keep input order.
func validateFiles(files []string, stdin bool, engineOpts []engine.Option) []fileReport {
	reports := make([]fileReport, len(files), len(files)+1)

	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i, path := range files {
		p.Go(func() {
			reports[i] = validateOne(path, engineOpts)
		})
	}
	p.Wait()

	if stdin {
		report := fileReport{File: "<stdin>", Valid: false}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			report.ReadError = err.Error()
		} else {
			report.Valid, report.Diagnostics = analyzeSource(string(data), engineOpts)
		}
		reports = append(reports, report)
	}
	return reports
}

func validateOne(path string, engineOpts []engine.Option) fileReport {
	report := fileReport{File: path, Valid: false}
	data, err := os.ReadFile(path)
	if err != nil {
		report.ReadError = err.Error()
		return report
	}
	report.Valid, report.Diagnostics = analyzeSource(string(data), engineOpts)
	return report
}

func analyzeSource(source string, engineOpts []engine.Option) (bool, []engine.Diagnostic) {
	result := engine.New(engineOpts...).Analyze(source)
	return result.Valid, result.Diagnostics
}

// filterReports drops diagnostics below the severity threshold.
func filterReports(reports []fileReport, minSeverity string) {
	max := severityRank(minSeverity)
	for i := range reports {
		kept := reports[i].Diagnostics[:0]
		for _, d := range reports[i].Diagnostics {
			if severityRank(d.Severity) <= max {
				kept = append(kept, d)
			}
		}
		reports[i].Diagnostics = kept
	}
}

func printJSON(reports []fileReport) error {
	out, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	_, err = fmt.Println(string(out))
	return err
}

func printText(reports []fileReport, quiet bool) {
	files, errors, warnings := 0, 0, 0
	for _, r := range reports {
		if r.ReadError != "" {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(
				fmt.Sprintf("%s: %s", r.File, r.ReadError)))
			continue
		}
		files++
		for _, d := range r.Diagnostics {
			switch d.Severity {
			case "error":
				errors++
			case "warning":
				warnings++
			}
			fmt.Println(console.FormatDiagnostic(r.File, d))
		}
	}
	if !quiet {
		fmt.Println(console.FormatSummary(files, errors, warnings))
	}
}

func exitFor(reports []fileReport) error {
	ioFailed := false
	invalid := false
	for _, r := range reports {
		if r.ReadError != "" {
			ioFailed = true
		} else if !r.Valid {
			invalid = true
		}
	}
	switch {
	case ioFailed:
		return &exitError{code: ExitIOFailure}
	case invalid:
		return &exitError{code: ExitInvalid}
	}
	return nil
}
