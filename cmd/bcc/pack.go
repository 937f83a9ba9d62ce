package main

import (
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/bcc/output"
	"github.com/deepnoodle-ai/bcc/script"
)

func newPackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <input.ll>",
		Short: "Bundle LLVM assembly and its metadata into a bitcode container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.pack(cmd, args[0])
		},
	}
	cmd.Flags().StringP("output", "o", "", "output path (default: input with .bc extension)")
	cmd.Flags().String("info", "", "TOML file with the script metadata")
	return cmd
}

func (a *app) pack(cmd *cobra.Command, input string) error {
	s, err := loadScript(cmd, input)
	if err != nil {
		return err
	}
	if err := s.Materialize(); err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = replaceExt(input, ".bc")
	}
	f := output.Create(outPath)
	w, err := f.Writer()
	if err != nil {
		return err
	}
	if err := script.WriteBitcode(w, s.Name(), s.Module(), s.Info()); err != nil {
		f.Discard()
		return err
	}
	if err := f.Close(); err != nil {
		f.Discard()
		return err
	}
	a.log.Info().Str("output", outPath).Msg("wrote bitcode")
	return nil
}
