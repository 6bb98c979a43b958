package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var enquiriesCmd = &cobra.Command{
	Use:   "enquiries",
	Short: "List stored quick enquiries, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ctx, cancel, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer cancel()
		defer client.Close()

		enquiries, err := client.ListEnquiries(ctx)
		if err != nil {
			return err
		}
		if len(enquiries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no enquiries")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tBUSINESS\tNAME\tEMAIL\tPHONE")
		for _, e := range enquiries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Local().Format(time.DateTime), e.BusinessName, e.Name, e.Email, e.PhoneNo)
		}
		return tw.Flush()
	},
}
