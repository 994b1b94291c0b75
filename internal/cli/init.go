package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize librarian storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand create the database schema. Existing data is kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}
}

// runInit relies on PersistentPreRunE for the config directory; attaching
// the backend creates the data directory and schema.
func runInit(cmd *cobra.Command, opts *rootOptions) error {
	var dbPath string
	err := withLibrary(opts, func(b *sqlite.Backend) error {
		dbPath = b.Path()
		return nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Library initialized successfully")
	fmt.Fprintln(out, "  config:  ", opts.resolvedConfigDir)
	fmt.Fprintln(out, "  database:", dbPath)
	return nil
}
