package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/bcc/compiler"
	"github.com/deepnoodle-ai/bcc/config"
	"github.com/deepnoodle-ai/bcc/output"
	"github.com/deepnoodle-ai/bcc/script"
)

func newCompileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <input.ll|input.bc>",
		Short: "Compile a script to an object file or assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.compile(cmd, args[0])
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "output path (default: input with .o or .s extension)")
	f.String("triple", "", "target triple, e.g. aarch64-none-linux-gnueabi")
	f.String("cpu", "", "target CPU")
	f.StringSlice("features", nil, "target features, e.g. +neon,-crc")
	f.String("reloc", "", "relocation model (static, pic, dynamic-no-pic)")
	f.String("code-model", "", "code model (small, medium, large, kernel)")
	f.IntP("opt-level", "O", config.OptAggressive, "optimization level (0-3)")
	f.String("filetype", "", "output kind (obj, asm)")
	f.Bool("no-opt", false, "disable optimization passes")
	f.String("emit-ir", "", "also write the transformed module to this path")
	f.String("ir-format", "text", "format of --emit-ir (text, bitcode)")
	f.String("target-config", "", "TOML file with the code generation options")
	f.String("info", "", "TOML file with the script metadata")
	for _, name := range []string{"triple", "cpu", "features", "reloc", "code-model", "opt-level", "filetype", "no-opt", "ir-format"} {
		a.v.BindPFlag(name, f.Lookup(name))
	}
	cmd.RegisterFlagCompletionFunc("ir-format", cobra.FixedCompletions([]string{"text", "bitcode"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// targetConfig merges the --target-config file with flags, environment and
// the user config file. Only settings that were given anywhere override the
// file.
func (a *app) targetConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default("")
	if path, _ := cmd.Flags().GetString("target-config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if a.v.IsSet("triple") {
		cfg.Triple = a.v.GetString("triple")
	}
	if a.v.IsSet("cpu") {
		cfg.CPU = a.v.GetString("cpu")
	}
	if a.v.IsSet("features") {
		cfg.Features = a.v.GetStringSlice("features")
	}
	if a.v.IsSet("reloc") {
		cfg.RelocModel = config.RelocModel(a.v.GetString("reloc"))
	}
	if a.v.IsSet("code-model") {
		cfg.CodeModel = config.CodeModel(a.v.GetString("code-model"))
	}
	if a.v.IsSet("opt-level") {
		cfg.OptLevel = a.v.GetInt("opt-level")
	}
	if a.v.IsSet("filetype") {
		cfg.FileType = config.FileType(a.v.GetString("filetype"))
	}
	return cfg, nil
}

func irFormat(name string) (compiler.IRFormat, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return compiler.IRText, nil
	case "bitcode", "bc":
		return compiler.IRBitcode, nil
	}
	return 0, fmt.Errorf("unknown IR format: %s", name)
}

func loadScript(cmd *cobra.Command, path string) (*script.Script, error) {
	var info *script.Info
	if infoPath, _ := cmd.Flags().GetString("info"); infoPath != "" {
		var err error
		if info, err = script.LoadInfo(infoPath); err != nil {
			return nil, err
		}
	}
	return script.LoadFile(path, info)
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func (a *app) compile(cmd *cobra.Command, input string) error {
	cfg, err := a.targetConfig(cmd)
	if err != nil {
		return err
	}
	format, err := irFormat(a.v.GetString("ir-format"))
	if err != nil {
		return err
	}
	s, err := loadScript(cmd, input)
	if err != nil {
		return err
	}

	c, err := compiler.NewWithConfig(cfg,
		compiler.WithLogger(a.log),
		compiler.WithIRFormat(format))
	if err != nil {
		return err
	}
	if a.v.GetBool("no-opt") {
		c.EnableOpt(false)
	}

	var (
		irw    io.Writer
		irFile *output.File
	)
	if irPath, _ := cmd.Flags().GetString("emit-ir"); irPath != "" {
		irFile = output.Create(irPath)
		if irw, err = irFile.Writer(); err != nil {
			irFile.Discard()
			return err
		}
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		ext := ".o"
		if c.TargetMachine().FileType() == config.FileTypeAssembly {
			ext = ".s"
		}
		outPath = replaceExt(input, ext)
	}
	err = c.CompileFile(s, output.Create(outPath), irw)
	if irFile != nil {
		// The IR is kept even when compilation fails.
		if cerr := irFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("emit-ir: %w", cerr)
		}
	}
	if err != nil {
		return err
	}
	a.log.Info().Str("output", outPath).Msg("wrote output")
	return nil
}
