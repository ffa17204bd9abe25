package main

import (
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load keys from a msgpack dump file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := tree.Load(f); err != nil {
			return err
		}
		printInfo("pool now holds %d keys\n", tree.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
