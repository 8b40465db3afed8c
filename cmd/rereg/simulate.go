package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"code.rereg.org/golang/internal/simserver"
	"code.rereg.org/golang/pkg/provcipher"
	"code.rereg.org/golang/pkg/provisioning"
	"code.rereg.org/golang/pkg/restore"
)

const restoreChoiceDelay = 200 * time.Millisecond

func newSimulateCmd(a *app) *cobra.Command {
	var serve bool
	var message string
	var choice string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the service simulator, by default a full link & restore exchange is played against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()

			method := restore.RestoreMethod(choice)
			if !method.Valid() {
				return fmt.Errorf("invalid restore method %q", choice)
			}

			srv := simserver.New()
			ln, err := net.Listen("tcp", a.cfg.Simulator.Listen)
			if nil != err {
				return err
			}
			hs := &http.Server{
				Handler:     srv.Handler(),
				BaseContext: func(net.Listener) context.Context { return ctx },
			}
			go func() {
				err := hs.Serve(ln)
				if !errors.Is(err, http.ErrServerClosed) {
					a.log.Error("simulator stopped", "error", err)
				}
			}()
			defer func() {
				srv.Close()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				hs.Shutdown(sctx)
			}()
			serviceURL := "http://" + ln.Addr().String()
			fmt.Fprintf(out, "simulator listening on %s\n", serviceURL)

			if serve {
				<-ctx.Done()
				return nil
			}

			cfg := *a.cfg
			cfg.Service.URL = serviceURL
			a.cfg = &cfg

			store, err := a.cfg.OpenStore(ctx)
			if nil != err {
				return err
			}

			// plays the primary device, it reads the provisioning url & encrypts the message for the new device key
			deliver := func(ctx context.Context, provURL string) error {
				fmt.Fprintln(out, provURL)
				address, pubkey, err := provisioning.ParseProvisioningURL(provURL)
				if nil != err {
					return err
				}
				env, err := provcipher.Encrypt(rand.Reader, pubkey, []byte(message))
				if nil != err {
					return err
				}
				return srv.Deliver(address, env)
			}
			if _, err = a.link(ctx, store, out, deliver); nil != err {
				return err
			}

			// plays the new device, its restore choice arrives while the long poll is pending
			token := srv.NewRestoreToken()
			timer := time.AfterFunc(restoreChoiceDelay, func() {
				if err := srv.SetRestoreMethod(token, method); nil != err {
					a.log.Error("failed setting restore method", "error", err)
				}
			})
			defer timer.Stop()

			client, err := restore.NewClient(a.cfg.RestoreClientCfg())
			if nil != err {
				return err
			}
			got, err := client.PollRestoreMethod(ctx, token, a.cfg.Restore.Timeout)
			if nil != err {
				return err
			}
			fmt.Fprintf(out, "restore method %s\n", got)

			return nil
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "only serve the simulated endpoints until interrupted")
	cmd.Flags().StringVar(&message, "message", "simulated provisioning message", "plaintext delivered to the linked device")
	cmd.Flags().StringVar(&choice, "restore-method", string(restore.RemoteBackup), "restore method chosen by the simulated new device")

	return cmd
}
