package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/bcc/target"
)

type targetInfo struct {
	Name          string   `json:"name"`
	Aliases       []string `json:"aliases,omitempty"`
	Description   string   `json:"description"`
	DefaultTriple string   `json:"default_triple"`
	PointerBits   int      `json:"pointer_bits"`
	CPUs          []string `json:"cpus"`
	Features      []string `json:"features"`
	Assembly      bool     `json:"assembly"`
}

func newTargetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the registered code generation targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			return a.targets(cmd, format)
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func (a *app) targets(cmd *cobra.Command, format string) error {
	format, err := checkFormat(format)
	if err != nil {
		return err
	}
	var infos []targetInfo
	for _, t := range target.Targets() {
		infos = append(infos, targetInfo{
			Name:          t.Name,
			Aliases:       t.Aliases,
			Description:   t.Description,
			DefaultTriple: t.DefaultTriple,
			PointerBits:   t.PointerBits,
			CPUs:          t.CPUs,
			Features:      t.Features,
			Assembly:      !t.NoAssemblyPrinter,
		})
	}
	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := a.marshalJSON(infos)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	for _, t := range infos {
		name := t.Name
		if len(t.Aliases) > 0 {
			name = fmt.Sprintf("%s (%s)", t.Name, strings.Join(t.Aliases, ", "))
		}
		fmt.Fprintf(out, "%-28s %s\n", name, t.Description)
	}
	return nil
}
