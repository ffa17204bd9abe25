package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	poolPath string
	useSHM   bool
	quiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "shmctl",
	Short: "Inspect and manipulate shared-memory prefix trees",
	Long: `shmctl is a tool for inspecting and editing prefix trees stored in
shared memory pools. It attaches to a pool by name, so it can examine
live segments other processes are using, or maintain file-backed ones
offline.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&poolPath, "pool", "p", "", "Pool name (file path, or segment name with --shm)")
	rootCmd.PersistentFlags().
		BoolVar(&useSHM, "shm", false, "Use a POSIX shared memory segment instead of a file")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.MarkPersistentFlagRequired("pool")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func main() {
	execute()
}
