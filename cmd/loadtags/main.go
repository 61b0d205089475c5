package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loadtags",
		Short: "Browse and read tags on a Logix-family PLC",
		Long: `loadtags talks EtherNet/IP + CIP directly to a ControlLogix or
CompactLogix controller to enumerate its tag directory or read tag values,
without needing a saved configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newLoadTagsCmd())
	rootCmd.AddCommand(newReadCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
