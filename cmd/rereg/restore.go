package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"code.rereg.org/golang/pkg/restore"
)

func newWaitRestoreCmd(a *app) *cobra.Command {
	var timeout time.Duration
	var once bool
	cmd := &cobra.Command{
		Use:   "wait-restore TOKEN",
		Short: "Wait for the restore method chosen on the new device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := restore.NewClient(a.cfg.RestoreClientCfg())
			if nil != err {
				return err
			}
			if 0 == timeout {
				timeout = a.cfg.Restore.Timeout
			}

			var method restore.RestoreMethod
			if once {
				method, err = client.WaitForRestoreMethod(ctx, args[0], timeout)
			} else {
				method, err = client.PollRestoreMethod(ctx, args[0], timeout)
			}
			if nil != err {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), method)

			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "server side wait of each poll (1s to 300s)")
	cmd.Flags().BoolVar(&once, "once", false, "poll a single time")

	return cmd
}
