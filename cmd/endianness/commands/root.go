package commands

import (
	"fmt"

	"github.com/openfluke/devcompute/gpu"
	"github.com/openfluke/devcompute/internal/config"
	"github.com/openfluke/devcompute/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	cfgFile  string
	logLevel string
	logFile  string

	cfg *config.Config
}

// Execute runs the root command and logs a failure before returning it.
func Execute() error {
	err := NewRootCommand().Execute()
	if err != nil {
		logging.Errorf("%v", err)
	}
	return err
}

// NewRootCommand builds the command tree. Running it without a subcommand
// runs the swap demo.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "endianness",
		Short: "Swap the byte order of a buffer on a compute device",
		Long: `endianness uploads a small buffer of 32-bit words to a compute
device, runs a byte swap kernel over it and prints the words before and
after the conversion.

The host backend runs everywhere. The webgpu backend dispatches a WGSL
shader on the selected adapter.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.devcompute/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file")

	run := newRunCommand(opts)
	root.Flags().AddFlagSet(run.Flags())
	root.RunE = run.RunE

	root.AddCommand(run)
	root.AddCommand(newDetectCommand(opts))
	return root
}

// setup loads configuration, applies flag overrides and starts logging.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Logging.File = o.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	gpu.Register(cfg.GPU.ReadbackTimeout)
	o.cfg = cfg
	return nil
}
