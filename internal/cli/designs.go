package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/edgebench/internal/dut"
)

// DesignInfo describes one registered design.
type DesignInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Params      map[string]int64 `json:"params"`
}

// NewDesignsCommand creates the designs command.
func NewDesignsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "designs",
		Short:         "List the designs scenarios can run against",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesigns(rootOpts, cmd)
		},
	}
}

func runDesigns(opts *RootOptions, cmd *cobra.Command) error {
	names := dut.Names()
	designs := make([]DesignInfo, 0, len(names))
	for _, name := range names {
		spec, _ := dut.Lookup(name)
		designs = append(designs, DesignInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Params:      spec.Defaults,
		})
	}

	if opts.Format == "json" {
		return newFormatter(opts, cmd).encode(CLIResponse{Status: "ok", Data: designs})
	}

	w := cmd.OutOrStdout()
	for _, d := range designs {
		fmt.Fprintf(w, "%-10s %s\n", d.Name, d.Description)
		if len(d.Params) > 0 {
			fmt.Fprintf(w, "%-10s params: %s\n", "", formatParams(d.Params))
		}
	}
	return nil
}

func formatParams(p map[string]int64) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, p[k])
	}
	return strings.Join(parts, " ")
}
