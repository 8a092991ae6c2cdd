package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newProvidersCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers keys can be validated against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := newRegistry(v)
			if err != nil {
				return err
			}
			for _, p := range registry.Providers() {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
