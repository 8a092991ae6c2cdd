package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/application"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/domain/model"
)

func newDecideCmd() *cobra.Command {
	var ec model.ExecutionContext

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Evaluate the attribution policy for an execution context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := application.Decide(ec)
			out := cmd.OutOrStdout()
			if d.Permitted {
				fmt.Fprintf(out, "permitted: quota=%s\n", d.QuotaPool)
				return nil
			}
			fmt.Fprintf(out, "denied: %s\n", d.DenialReason)
			return exitCodeError{code: exitInvalid}
		},
	}

	cmd.Flags().BoolVar(&ec.IsScheduled, "scheduled", false, "execution was triggered by a schedule")
	cmd.Flags().BoolVar(&ec.IsRecurring, "recurring", false, "execution belongs to a recurring job")
	cmd.Flags().BoolVar(&ec.HasStoredValidKey, "has-key", false, "user has a stored key whose last check was valid")
	return cmd
}
