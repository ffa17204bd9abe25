package main

import (
	"github.com/spf13/cobra"

	"github.com/shmkit/shmkit/shm"
)

var rmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Delete the pool segment itself",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		existed, err := shm.Delete(poolPath, backing())
		if err != nil {
			return err
		}
		if existed {
			printInfo("deleted pool %s\n", poolPath)
		} else {
			printInfo("pool %s did not exist\n", poolPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
