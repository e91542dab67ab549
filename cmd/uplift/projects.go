package main

import (
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects <solution-or-project>",
	Short: "List projects in upgrade order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, opts, done, err := setup(cmd)
		if err != nil {
			return err
		}
		defer done()
		return u.Projects(cmd.Context(), ports.ExpandPath(args[0]), opts)
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}
