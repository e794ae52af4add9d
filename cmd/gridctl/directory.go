package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) unitsCommand() *cobra.Command {
	var page int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List enrolled units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			units, err := c.Units(ctx, page)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), units)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFINGERPRINT\tCOUNTRY\tNETWORKS")
			for _, u := range units.Units {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", u.Name, u.Fingerprint, u.Country, u.Networks)
			}
			fmt.Fprintf(tw, "page %d of %d, %d units\n", max(page, 1), units.Pages, units.Records)
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw page as JSON")
	return cmd
}

func (a *app) countriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "Show unit counts per country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			counts, err := c.UnitsByCountry(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COUNTRY\tUNITS")
			for _, cc := range counts {
				fmt.Fprintf(tw, "%s\t%d\n", cc.Country, cc.Units)
			}
			return tw.Flush()
		},
	}
}

func (a *app) unitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unit <fingerprint>",
		Short: "Look up a unit by fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := callContext(cmd)
			defer cancel()
			u, err := c.Unit(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
}

func (a *app) enrollCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll",
		Short: "Enroll with the directory and report the identity used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.session(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enrolled as %s\n", c.Identity())
			return nil
		},
	}
}
