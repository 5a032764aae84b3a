package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "panelgate",
		Short: "Role-based route gate and session store for the CRM dashboard",
		Long: `panelgate sits in front of the dashboard and decides, for every page
navigation, whether to let it through or redirect it based on the auth-token
and user-role cookies. It also owns the login and logout session endpoints.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newDecideCmd(),
		newBenchCmd(),
		newHashPasswordCmd(),
	)
	return root
}
