package cli

import (
	"github.com/spf13/cobra"
)

// newVersionCmd creates the "version" command. The root command also
// accepts --version; this exists for users who expect a subcommand.
func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the memberboard version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("memberboard", ver)
		},
	}
}
