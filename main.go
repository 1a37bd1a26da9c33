package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

// envConfig holds settings that can be given through the environment.
// Flags take precedence.
type envConfig struct {
	LogLevel   string `env:"PASSFS_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"PASSFS_LOG_FORMAT" envDefault:"console"`
	Config     string `env:"PASSFS_CONFIG"`
	MountPoint string `env:"PASSFS_MOUNT" envDefault:"/tmp/secrets-mount"`
	OPAccount  string `env:"OP_ACCOUNT"`
}

type app struct {
	env       envConfig
	logLevel  string
	logFormat string
	log       zerolog.Logger
}

func newRootCmd() (*cobra.Command, error) {
	a := &app{}
	if err := env.Parse(&a.env); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	root := &cobra.Command{
		Use:   "passfs",
		Short: "Resolve OpenSSL-style passphrase arguments",
		Long: `passfs resolves OpenSSL-compatible passphrase arguments:

  pass:<password>   the password itself
  env:<var>         the environment variable var
  file:<pathname>   the next line of pathname
  fd:<number>       the next line of file descriptor number (not on Windows)
  stdin             the next line of standard input
  prompt[:<text>]   an interactive prompt without echo

Arguments sharing the same file-like source read successive lines,
in the order they are given.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(a.logLevel, a.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log = l
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", a.env.LogLevel, "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", a.env.LogFormat, "Log format: console, json")

	root.AddCommand(a.newParseCmd(), a.newReadCmd(), a.newMountCmd())
	return root, nil
}

func main() {
	root, err := newRootCmd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
