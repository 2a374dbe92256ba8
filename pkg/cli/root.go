// Package cli wires the truss commands: validate and rules.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trussci/truss/pkg/console"
	"github.com/trussci/truss/pkg/logger"
)

var rootLog = logger.New("cli:root")

// Exit codes.
const (
	ExitOK        = 0
	ExitInvalid   = 1 // validation produced errors
	ExitUsage     = 2
	ExitIOFailure = 3
)

// exitError carries an exit code through cobra's error return. An empty
// message means the failure was already reported (diagnostics on stdout).
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func usageErr(format string, args ...any) error {
	return &exitError{code: ExitUsage, msg: fmt.Sprintf(format, args...)}
}

func ioErr(err error) error {
	return &exitError{code: ExitIOFailure, msg: err.Error()}
}

// NewRootCommand builds the truss command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "truss",
		Short:         "Validate CI workflow YAML",
		Long:          "truss validates GitHub Actions workflow files: structure, references, expressions, and common mistakes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			console.SetColorsEnabled(false)
		}
	}
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewRulesCommand())
	return cmd
}

// Run executes the CLI and returns the process exit code.
func Run() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, console.FormatErrorMessage(ee.msg))
		}
		return ee.code
	}

	// Anything else came from cobra itself: unknown flags or commands.
	rootLog.Printf("command failed: %v", err)
	fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
	return ExitUsage
}
