// Command memberboard is the terminal analytics dashboard for membership data.
package main

import (
	"fmt"
	"os"

	"github.com/membercare/memberboard/internal/cli"
	"github.com/membercare/memberboard/pkg/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	return cli.NewRootCmd(version.GetVersion()).Execute()
}
