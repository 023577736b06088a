package cli

import (
	"github.com/spf13/cobra"
)

// newPingCmd creates the "ping" command that runs a trivial statement
// against the warehouse to verify connectivity and credentials.
func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check warehouse connectivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.client.Ping(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("Warehouse %s is reachable.\n", a.cfg.Warehouse.WarehouseID)
			return nil
		},
	}
}
