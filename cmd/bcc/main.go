package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/bcc/errors"
	"github.com/deepnoodle-ai/bcc/target"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app carries the settings shared by every command.
type app struct {
	v   *viper.Viper
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}
	cmd := &cobra.Command{
		Use:           "bcc",
		Short:         "Ahead-of-time compiler for bitcode scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	cmd.PersistentFlags().String("config", "", "config file (default is $HOME/.bcc.toml)")
	cmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	cmd.PersistentFlags().String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	a.v.BindPFlag("no-color", cmd.PersistentFlags().Lookup("no-color"))
	a.v.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(
		newCompileCmd(a),
		newPackCmd(a),
		newTargetsCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

// init reads the config file and environment, and sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("bcc")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(".bcc")
		a.v.SetConfigType("toml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !stderrors.As(err, &notFound) {
			return fmt.Errorf("config file: %w", err)
		}
	}

	if a.v.GetBool("no-color") {
		color.NoColor = true
	}
	level, err := zerolog.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q", a.v.GetString("log-level"))
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{
		Out:     cmd.ErrOrStderr(),
		NoColor: color.NoColor,
	}).Level(level).With().Timestamp().Logger()

	target.InitializeAll()
	return nil
}

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
	if err := newRootCmd().Execute(); err != nil {
		fatal(describeError(err))
	}
}

// describeError prefixes compiler errors with their code.
func describeError(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return fmt.Sprintf("error[%s]: %s", e.Code, err)
	}
	return fmt.Sprintf("%s: %s", filepath.Base(os.Args[0]), err)
}
