package main

import (
	"encoding/base64"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"code.rereg.org/golang/pkg/linkstore"
)

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage saved linking results",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenStore(cmd.Context())
			if nil != err {
				return err
			}
			records, err := store.ListRecords(cmd.Context(), limit)
			if nil != err {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSESSION\tADDRESS\tCREATED")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", rec.ID, rec.SessionID, rec.Address, rec.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 16, "maximum number of records")

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenStore(cmd.Context())
			if nil != err {
				return err
			}
			var rec linkstore.Record
			found, err := store.LoadRecord(cmd.Context(), args[0], &rec)
			if nil != err {
				return err
			}
			if !found {
				return fmt.Errorf("record %s not found", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id: %s\n", rec.ID)
			fmt.Fprintf(out, "session: %d\n", rec.SessionID)
			fmt.Fprintf(out, "address: %s\n", rec.Address)
			fmt.Fprintf(out, "url: %s\n", rec.ProvisioningURL)
			fmt.Fprintf(out, "created: %s\n", rec.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "sender key: %s\n", base64.StdEncoding.EncodeToString(rec.SenderKey))
			fmt.Fprintf(out, "message: %s\n", base64.StdEncoding.EncodeToString(rec.Message))
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenStore(cmd.Context())
			if nil != err {
				return err
			}
			removed, err := store.RemoveRecord(cmd.Context(), args[0])
			if nil != err {
				return err
			}
			if !removed {
				return fmt.Errorf("record %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed record %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, rmCmd)

	return cmd
}
