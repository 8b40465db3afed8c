package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"code.rereg.org/golang/internal/config"
	"code.rereg.org/golang/internal/observability"
)

// app holds the state shared by the rereg commands.
type app struct {
	cfgPath string
	verbose bool

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "rereg",
		Short:         "Link a device through the provisioning socket and follow account restore",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "rereg.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "V", false, "debug logging")

	rootCmd.AddCommand(
		newLinkCmd(a),
		newWaitRestoreCmd(a),
		newSimulateCmd(a),
		newRecordsCmd(a),
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	return rootCmd
}

// init loads the configuration and installs the logger in the command context.
func (self *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(self.cfgPath)
	if nil != err {
		return err
	}
	if self.verbose {
		cfg.Log.Level = "debug"
	}
	self.cfg = cfg
	self.log = cfg.Logger(cmd.ErrOrStderr())

	ctx := cmd.Context()
	if nil == ctx {
		ctx = context.Background()
	}
	ctx = observability.SetObservability(ctx, &observability.Observability{Logger: self.log})
	cmd.SetContext(observability.WithAttrs(ctx, "cmd", cmd.Name()))

	return nil
}
