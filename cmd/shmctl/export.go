package main

import (
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the tree to a msgpack dump file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := tree.Dump(f); err != nil {
			return err
		}
		printInfo("exported %d keys to %s\n", tree.Len(), args[0])
		return f.Sync()
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
