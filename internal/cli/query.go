package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// newQueryCmd creates the "query" command that runs one catalog view and
// prints the rows. It goes through the same cache and retry path as the
// dashboard, so repeated invocations within the cache TTL are free.
func newQueryCmd() *cobra.Command {
	var (
		params  []string
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "query <view>",
		Short: "Run a catalog view and print the rows",
		Args:  cobra.ExactArgs(1),
		Example: `  # Print the latest membership KPIs
  memberboard query membership_kpis

  # Limit the KPI window and emit JSON
  memberboard query membership_kpis --param months=6 --json

  # Force a fetch even when the cache is fresh
  memberboard query region_summary --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, ok := query.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown view %q; run 'memberboard views' for the list", args[0])
			}

			paramMap, err := parseParams(params)
			if err != nil {
				return err
			}

			return runQuery(cmd, view.Identity(paramMap), asJSON, refresh)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit rows as JSON instead of a table")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "invalidate the cached result before fetching")

	return cmd
}

func runQuery(cmd *cobra.Command, id query.Identity, asJSON, refresh bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if refresh {
		a.coord.Invalidate(id)
	}

	outcome := a.coord.Fetch(cmd.Context(), id)
	if outcome.Err != nil && outcome.Result == nil {
		return outcome.Err
	}
	if outcome.Stale {
		cmd.PrintErrln("Warning: refresh failed, showing stale data from", outcome.FetchedAt.Format("15:04:05"))
	}

	if asJSON {
		return printJSON(cmd, outcome.Result)
	}
	printTable(cmd, outcome.Result)
	return nil
}

// parseParams converts repeated key=value flags into a parameter map.
func parseParams(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, rs *warehouse.ResultSet) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rs.Rows)
}

func printTable(cmd *cobra.Command, rs *warehouse.ResultSet) {
	if rs.Empty() {
		cmd.Println("No rows.")
		return
	}

	const tabPadding = 2
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)

	fmt.Fprintln(w, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, len(rs.Columns))
		for i, col := range rs.Columns {
			if v := row[col]; v != nil {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}
