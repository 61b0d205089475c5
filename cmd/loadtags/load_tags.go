package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// tagRecord is the on-disk shape for one discovered tag.
type tagRecord struct {
	Name       string `json:"name"`
	TypeName   string `json:"type"`
	TypeCode   uint16 `json:"type_code"`
	Dimensions []int  `json:"dimensions,omitempty"`
	Instance   uint32 `json:"instance"`
	Readable   bool   `json:"readable"`
}

func newLoadTagsCmd() *cobra.Command {
	flags := &connectFlags{}

	cmd := &cobra.Command{
		Use:   "load-tags <ip> <dir>",
		Short: "Enumerate every controller and program tag and save the tree as JSON",
		Long: `load-tags opens a session to the controller at <ip>, walks the Symbol
Object directory for the controller scope and every program scope, and writes
the discovered tag list to <dir>/<ip>.json.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadTags(args[0], args[1], flags)
		},
	}

	addConnectFlags(cmd, flags)
	return cmd
}

func runLoadTags(address, dir string, flags *connectFlags) error {
	client, err := connect(address, flags)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", address, err)
	}
	defer client.Close()

	tags, err := client.AllTags()
	if err != nil {
		return fmt.Errorf("load tags from %s: %w", address, err)
	}

	records := make([]tagRecord, 0, len(tags))
	for _, t := range tags {
		records = append(records, tagRecord{
			Name:       t.Name,
			TypeName:   t.TypeName(),
			TypeCode:   t.TypeCode,
			Dimensions: t.Dimensions,
			Instance:   t.Instance,
			Readable:   t.IsReadable(),
		})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	outPath := filepath.Join(dir, address+".json")
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tag tree: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote %d tags to %s\n", len(records), outPath)
	return nil
}
