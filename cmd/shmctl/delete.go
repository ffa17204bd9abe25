package main

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		existed, err := tree.Erase([]byte(args[0]))
		if err != nil {
			return err
		}
		if existed {
			printInfo("deleted %q\n", args[0])
		} else {
			printInfo("%q was not present\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
