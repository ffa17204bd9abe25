package main

import (
	"github.com/spf13/cobra"
)

var setType string

var setCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a value under a key",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		literal := ""
		if len(args) == 2 {
			literal = args[1]
		}
		v, err := parseValue(setType, literal)
		if err != nil {
			return err
		}

		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		if err := tree.Insert([]byte(args[0]), v); err != nil {
			return err
		}
		printInfo("set %q = %s\n", args[0], v)
		return nil
	},
}

func init() {
	setCmd.Flags().
		StringVarP(&setType, "type", "t", "string", "Value type: string, int, double, bool, null")
	rootCmd.AddCommand(setCmd)
}
