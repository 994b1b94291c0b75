package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write books, members and loans to JSONL files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				m, err := b.Export(args[0])
				if err != nil {
					return err
				}
				return printManifest(cmd, opts, "Exported", m)
			})
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load JSONL files into an empty library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				m, err := b.Import(args[0])
				if err != nil {
					return err
				}
				return printManifest(cmd, opts, "Imported", m)
			})
		},
	}
}

func printManifest(cmd *cobra.Command, opts *rootOptions, verb string, m *sqlite.Manifest) error {
	if opts.jsonMode {
		return printJSON(cmd.OutOrStdout(), m)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d book(s), %d member(s), %d loan(s)\n", verb, m.Books, m.Members, m.Loans)
	return nil
}
