package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysLong bool

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List all keys in lexicographic order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		it := tree.Iter()
		for it.Next() {
			if keysLong {
				fmt.Printf("%q\t%s\t%s\n", it.Key(), it.Value().Tag, it.Value())
			} else {
				fmt.Printf("%q\n", it.Key())
			}
		}
		return nil
	},
}

func init() {
	keysCmd.Flags().BoolVarP(&keysLong, "long", "l", false, "Also print types and values")
	rootCmd.AddCommand(keysCmd)
}
