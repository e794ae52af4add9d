package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"gridlink.unit/gridlink/internal/types"
)

func (a *app) inboxCommand() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List messages in the unit's mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			inbox, err := c.Inbox(ctx, page)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tRECEIVED\tSEEN")
			for _, m := range inbox.Messages {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", m.ID, m.SenderName, m.CreatedAt.Format("2006-01-02 15:04"), m.SeenAt != nil)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func (a *app) readCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Print a single message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			c, err := a.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			msg, err := c.Message(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), msg)
		},
	}
}

func (a *app) markCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "mark <id> <seen|unseen|deleted>",
		Short:     "Mark a message",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(types.MarkSeen), string(types.MarkUnseen), string(types.MarkDeleted)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid message id %q", args[0])
			}
			mark := types.Mark(args[1])
			if !mark.Valid() {
				return fmt.Errorf("invalid mark %q", args[1])
			}
			c, err := a.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			out, err := c.Mark(ctx, id, mark)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) sendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <fingerprint> <message>",
		Short: "Sign and send a message to another unit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			out, err := c.Send(ctx, args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) reportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report <bssid> [essid]",
		Short: "Report a single access point directly",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ap := types.AccessPoint{BSSID: args[0]}
			if len(args) == 2 {
				ap.ESSID = args[1]
			}
			if err := validator.New().Struct(ap); err != nil {
				return fmt.Errorf("invalid access point: %w", err)
			}

			c, err := a.session(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			out, err := c.ReportAP(ctx, ap)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
