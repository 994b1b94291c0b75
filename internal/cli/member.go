package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func newMemberCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage library members",
	}
	cmd.AddCommand(
		newMemberAddCmd(opts),
		newMemberListCmd(opts),
		newMemberGetCmd(opts),
		newMemberDeleteCmd(opts),
	)
	return cmd
}

func newMemberAddCmd(opts *rootOptions) *cobra.Command {
	var nm types.NewMember
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Register a member",
		Example: `  librarian member add --name "Ada Lovelace" --email ada@example.org`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				member, err := b.Members().Add(nm)
				if err != nil {
					return err
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), member)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Member added successfully (id %d)\n", member.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nm.Name, "name", "", "member name (required)")
	cmd.Flags().StringVar(&nm.Email, "email", "", "email address, unique when set")
	cmd.Flags().StringVar(&nm.Phone, "phone", "", "phone number")
	return cmd
}

func newMemberListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				members, err := b.Members().List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonMode {
					return printJSON(out, members)
				}
				if len(members) == 0 {
					fmt.Fprintln(out, "No members found.")
					return nil
				}
				rows := make([][]string, 0, len(members))
				for _, m := range members {
					rows = append(rows, []string{
						strconv.FormatInt(m.ID, 10),
						m.Name,
						formatOptional(m.Email),
						formatOptional(m.Phone),
					})
				}
				printTable(out, []string{"ID", "NAME", "EMAIL", "PHONE"}, rows)
				fmt.Fprintf(out, "Total: %d member(s)\n", len(members))
				return nil
			})
		},
	}
}

func newMemberGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one member",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				member, err := b.Members().Get(id)
				if err != nil {
					return fmt.Errorf("member %d: %w", id, err)
				}
				out := cmd.OutOrStdout()
				if opts.jsonMode {
					return printJSON(out, member)
				}
				fmt.Fprintf(out, "ID:    %d\n", member.ID)
				fmt.Fprintf(out, "Name:  %s\n", member.Name)
				fmt.Fprintf(out, "Email: %s\n", formatOptional(member.Email))
				fmt.Fprintf(out, "Phone: %s\n", formatOptional(member.Phone))
				return nil
			})
		},
	}
}

func newMemberDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a member with no active loans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				member, err := b.Members().Get(id)
				if err != nil {
					return fmt.Errorf("member %d: %w", id, err)
				}
				return deleteRow(cmd, b.Members(), "member", member.ID, member.Name, yes)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
