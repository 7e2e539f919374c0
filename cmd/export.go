package cmd

import (
	"github.com/spf13/cobra"

	"oidcli/internal/profile"
)

var exportCmd = &cobra.Command{
	Use:   "export <file> [profile...]",
	Short: "Export profiles to a file",
	Long: `Export writes profiles to a YAML file, or JSON when the file name
ends in .json. Without profile arguments all profiles are exported. Secrets
held in the OS keyring are never written to the export.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := profile.NewManager()
		if err != nil {
			return err
		}
		if err := mgr.Export(args[0], args[1:]); err != nil {
			return err
		}
		out("Profiles exported to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
