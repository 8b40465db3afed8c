package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"code.rereg.org/golang/pkg/linkstore"
	"code.rereg.org/golang/pkg/provisioning"
)

func newLinkCmd(a *app) *cobra.Command {
	var qrPath string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Open a provisioning socket, print the provisioning url and wait for the registration message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := a.cfg.OpenStore(ctx)
			if nil != err {
				return err
			}
			out := cmd.OutOrStdout()
			onURL := func(ctx context.Context, provURL string) error {
				fmt.Fprintln(out, provURL)
				if "" == qrPath {
					return nil
				}
				return writeQR(qrPath, provURL)
			}
			_, err = a.link(ctx, store, out, onURL)
			return err
		},
	}
	cmd.Flags().StringVar(&qrPath, "qr", "", "write the provisioning url QR code to this PNG file")

	return cmd
}

// link runs a provisioning Session, onURL is called once the provisioning url is known.
// The registration message is saved in store and the new Record ID is returned.
func (self *app) link(ctx context.Context, store linkstore.Store, out io.Writer, onURL func(context.Context, string) error) (string, error) {
	identity, err := loadIdentity(self.cfg.IdentityKey)
	if nil != err {
		return "", err
	}

	var recordID string
	block := func(ctx context.Context, s *provisioning.Session) error {
		provURL, err := s.ProvisioningURL(ctx)
		if nil != err {
			return err
		}
		if err = onURL(ctx, provURL); nil != err {
			return err
		}

		result, err := s.RegistrationMessage(ctx)
		if nil != err {
			return err
		}
		address, _, err := provisioning.ParseProvisioningURL(provURL)
		if nil != err {
			return err
		}
		recordID, err = store.SaveRecord(ctx, linkstore.Record{
			SessionID:       s.ID(),
			Address:         address,
			ProvisioningURL: provURL,
			Message:         result.Message,
			SenderKey:       result.SenderKey,
		})
		return err
	}

	s, err := provisioning.Start(ctx, identity, self.cfg.ProvisioningConfig(), nil, block)
	if nil != err {
		return "", err
	}
	<-s.Done()
	if err = s.Err(); nil != err {
		return "", err
	}
	if "" == recordID {
		return "", fmt.Errorf("session %d ended before the registration message", s.ID())
	}
	fmt.Fprintf(out, "saved record %s\n", recordID)

	return recordID, nil
}
