package main

import (
	"github.com/spf13/cobra"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "List configured constraint sets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sets, err := cfg.ConstraintSets()
		if err != nil {
			return err
		}
		printSets(cmd.OutOrStdout(), sets)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setsCmd)
}
