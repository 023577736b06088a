package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/membercare/memberboard/internal/query"
)

// newViewsCmd creates the "views" command listing the catalog views.
// It is fully offline and works without a configured warehouse.
func newViewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the catalog views the dashboard knows about",
		RunE: func(cmd *cobra.Command, _ []string) error {
			const tabPadding = 2
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)

			fmt.Fprintln(w, "Name\tTitle\tTTL\tDescription")
			fmt.Fprintln(w, "----\t-----\t---\t-----------")
			for _, v := range query.Views() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, v.Title, v.TTL, v.Description)
			}
			return w.Flush()
		},
	}
}
