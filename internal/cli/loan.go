package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func newLoanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Record and return loans",
	}
	cmd.AddCommand(
		newLoanCreateCmd(opts),
		newLoanListCmd(opts),
		newLoanGetCmd(opts),
		newLoanReturnCmd(opts),
	)
	return cmd
}

func newLoanCreateCmd(opts *rootOptions) *cobra.Command {
	var bookID, memberID int64
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Lend a book to a member, dated today",
		Example: "  librarian loan create --book 3 --member 1",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bookID == 0 || memberID == 0 {
				return userError(fmt.Errorf("--book and --member are required: %w", types.ErrNoSelection))
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				loan, err := b.Loans().Create(bookID, memberID)
				if err != nil {
					return err
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), loan)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loan created successfully (id %d, %s)\n", loan.ID, loan.LoanDate)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "id of the book to lend")
	cmd.Flags().Int64Var(&memberID, "member", 0, "id of the borrowing member")
	return cmd
}

func newLoanListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all loans with book and member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				loans, err := b.Loans().List()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonMode {
					return printJSON(out, loans)
				}
				if len(loans) == 0 {
					fmt.Fprintln(out, "No loans found.")
					return nil
				}
				rows := make([][]string, 0, len(loans))
				for _, l := range loans {
					rows = append(rows, []string{
						strconv.FormatInt(l.ID, 10),
						l.BookTitle,
						l.MemberName,
						l.LoanDate,
						formatOptional(l.ReturnDate),
						l.StatusText,
					})
				}
				printTable(out, []string{"ID", "BOOK", "MEMBER", "LOANED", "RETURNED", "STATUS"}, rows)
				fmt.Fprintf(out, "Total: %d loan(s)\n", len(loans))
				return nil
			})
		},
	}
}

func newLoanGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one loan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				loan, err := b.Loans().Get(id)
				if err != nil {
					return fmt.Errorf("loan %d: %w", id, err)
				}
				return printLoan(cmd, opts, loan)
			})
		},
	}
}

func newLoanReturnCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <id>",
		Short: "Mark a loan returned today",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				loan, err := b.Loans().Return(id)
				if err != nil {
					return fmt.Errorf("loan %d: %w", id, err)
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), loan)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loan returned successfully (%s)\n", formatOptional(loan.ReturnDate))
				return nil
			})
		},
	}
}

func printLoan(cmd *cobra.Command, opts *rootOptions, loan *types.Loan) error {
	out := cmd.OutOrStdout()
	if opts.jsonMode {
		return printJSON(out, loan)
	}
	fmt.Fprintf(out, "ID:       %d\n", loan.ID)
	fmt.Fprintf(out, "Book:     %d\n", loan.BookID)
	fmt.Fprintf(out, "Member:   %d\n", loan.MemberID)
	fmt.Fprintf(out, "Loaned:   %s\n", loan.LoanDate)
	fmt.Fprintf(out, "Returned: %s\n", formatOptional(loan.ReturnDate))
	fmt.Fprintf(out, "Status:   %s\n", loan.Status())
	return nil
}
