package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"oidcli/internal/profile"
	"oidcli/internal/ui"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		mgr, err := profile.NewManager()
		if err != nil {
			return err
		}
		if _, err := mgr.Get(name); err != nil {
			return err
		}

		if !deleteForce {
			p, err := ui.NewPrompter()
			if err != nil {
				return err
			}
			ok, err := p.Confirm(fmt.Sprintf("Delete profile %q?", name))
			p.Close()
			if err != nil {
				return err
			}
			if !ok {
				outln("Aborted.")
				return nil
			}
		}

		if err := mgr.Delete(name); err != nil {
			return err
		}

		out("Profile %q deleted.\n", name)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(deleteCmd)
}
