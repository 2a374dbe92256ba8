package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trussci/truss/pkg/console"
	"github.com/trussci/truss/pkg/rules"
)

// NewRulesCommand creates the rules command, which prints the registry.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the validation rules",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			var rows [][]string
			for _, r := range rules.All() {
				scope := "workflow"
				if !r.RequiresWorkflow() {
					scope = "any yaml"
				}
				rows = append(rows, []string{r.ID(), scope})
			}
			fmt.Print(console.RenderTable([]string{"Rule", "Scope"}, rows))
			return nil
		},
	}
}
