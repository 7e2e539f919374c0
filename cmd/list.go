package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oidcli/internal/profile"
	"oidcli/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured profiles",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := profile.NewManager()
		if err != nil {
			return err
		}

		names := mgr.Names()
		if isQuiet() {
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		}

		if len(names) == 0 {
			fmt.Println("No profiles found. Create one with 'oidcli create'.")
			return nil
		}

		ui.ProfileTable(os.Stdout, names, mgr.Get)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
