package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	flags := &connectFlags{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "read <ip> <tag...>",
		Short: "Read one or more tag values from a controller",
		Long: `read opens a session to the controller at <ip> and reads each named tag,
printing its decoded value. Tags that fail to resolve or read are reported
individually; the command still reports success for the tags that did read.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(args[0], args[1:], flags, asJSON)
		},
	}

	addConnectFlags(cmd, flags)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as a JSON object keyed by tag name")
	return cmd
}

func runRead(address string, tagNames []string, flags *connectFlags, asJSON bool) error {
	client, err := connect(address, flags)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", address, err)
	}
	defer client.Close()

	values, err := client.Read(tagNames...)
	if err != nil {
		return fmt.Errorf("read from %s: %w", address, err)
	}

	if asJSON {
		out := make(map[string]interface{}, len(values))
		for _, v := range values {
			if v.Error != nil {
				out[v.Name] = map[string]string{"error": v.Error.Error()}
				continue
			}
			out[v.Name] = v.GoValueDecoded(client)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	exitCode := 0
	for _, v := range values {
		if v.Error != nil {
			fmt.Printf("%s: error: %v\n", v.Name, v.Error)
			exitCode = 1
			continue
		}
		fmt.Printf("%s (%s) = %v\n", v.Name, v.TypeName(), v.GoValueDecoded(client))
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
