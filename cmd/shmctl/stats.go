package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pool and tree statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, done, err := openTree()
		if err != nil {
			return err
		}
		defer done()

		a := tree.Allocator()
		fmt.Printf("pool size:       %d\n", a.Pool().Size())
		fmt.Printf("bytes allocated: %d\n", a.BytesAllocated())
		fmt.Printf("bytes free:      %d\n", a.BytesFree())
		fmt.Printf("keys:            %d\n", tree.Len())
		fmt.Printf("nodes:           %d\n", tree.NodeCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
