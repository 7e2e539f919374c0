package cmd

import (
	"github.com/spf13/cobra"

	"oidcli/internal/profile"
)

var importOverwrite bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import profiles from a file",
	Long: `Import reads profiles from a YAML file, or JSON when the file name
ends in .json. Every profile is validated before anything is stored, so a
bad file changes nothing. Existing profiles are only replaced with
--overwrite.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := profile.NewManager()
		if err != nil {
			return err
		}
		names, err := mgr.Import(args[0], importOverwrite)
		if err != nil {
			return err
		}
		for _, name := range names {
			out("Imported profile %q\n", name)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "Replace existing profiles with the same name")

	rootCmd.AddCommand(importCmd)
}
