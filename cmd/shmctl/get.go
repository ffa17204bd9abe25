package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		v, err := tree.At([]byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", v.Tag, v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
