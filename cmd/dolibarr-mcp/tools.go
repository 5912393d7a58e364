package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marioser/dolibarr-mcp/catalog"
)

type toolInfo struct {
	Name        string   `json:"name"`
	Cacheable   bool     `json:"cacheable"`
	TTLSeconds  int      `json:"ttl_seconds"`
	Invalidates []string `json:"invalidates,omitempty"`
	Description string   `json:"description"`
}

func newToolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools with their cache policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos := toolInfos(catalog.Default())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			return writeToolTable(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func toolInfos(cat *catalog.Catalog) []toolInfo {
	names := cat.Names()
	infos := make([]toolInfo, 0, len(names))
	for _, name := range names {
		d, _ := cat.Describe(name)
		infos = append(infos, toolInfo{
			Name:        d.Name,
			Cacheable:   d.Cacheable,
			TTLSeconds:  d.TTLSeconds(),
			Invalidates: cat.InvalidationTargetsFor(name),
			Description: d.Description,
		})
	}
	return infos
}

func writeToolTable(w io.Writer, infos []toolInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tCACHE\tINVALIDATES")
	for _, t := range infos {
		policy := "no-cache"
		if t.Cacheable {
			policy = fmt.Sprintf("%ds", t.TTLSeconds)
		}
		inv := "-"
		if len(t.Invalidates) > 0 {
			inv = strings.Join(t.Invalidates, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, policy, inv)
	}
	return tw.Flush()
}
