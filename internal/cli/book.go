package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

func newBookCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the book catalog",
	}
	cmd.AddCommand(
		newBookAddCmd(opts),
		newBookListCmd(opts),
		newBookGetCmd(opts),
		newBookSearchCmd(opts),
		newBookDeleteCmd(opts),
		newBookBorrowCmd(opts),
		newBookReturnCmd(opts),
	)
	return cmd
}

func newBookAddCmd(opts *rootOptions) *cobra.Command {
	var nb types.NewBook
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Example: `  librarian book add --title "Dune" --author "Frank Herbert" --year 1965
  librarian book add --title "Emma" --author "Jane Austen" --quantity 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				book, err := b.Books().Add(nb)
				if err != nil {
					return err
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), book)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Book added successfully (id %d)\n", book.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nb.Title, "title", "", "book title (required)")
	cmd.Flags().StringVar(&nb.Author, "author", "", "book author (required)")
	cmd.Flags().StringVar(&nb.Year, "year", "", "publication year (optional)")
	cmd.Flags().Int64Var(&nb.Quantity, "quantity", 1, "number of copies")
	return cmd
}

func newBookListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(opts, func(b *sqlite.Backend) error {
				books, err := b.Books().List()
				if err != nil {
					return err
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), books)
				}
				out := cmd.OutOrStdout()
				if len(books) == 0 {
					fmt.Fprintln(out, "No books found.")
					return nil
				}
				printBooks(out, books, nil)
				fmt.Fprintf(out, "Total: %d book(s)\n", len(books))
				return nil
			})
		},
	}
}

func newBookGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				book, err := b.Books().Get(id)
				if err != nil {
					return fmt.Errorf("book %d: %w", id, err)
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), book)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %d\n", book.ID)
				fmt.Fprintf(out, "Title:    %s\n", book.Title)
				fmt.Fprintf(out, "Author:   %s\n", book.Author)
				fmt.Fprintf(out, "Year:     %s\n", formatYear(book.Year))
				fmt.Fprintf(out, "Quantity: %d\n", book.Quantity)
				fmt.Fprintf(out, "Status:   %s\n", book.Status())
				return nil
			})
		},
	}
}

func newBookSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find books by title, author or year",
		Long: `Search matches the query against title, author and year, ignoring case.
The first match is selected and marked with *.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withLibrary(opts, func(b *sqlite.Backend) error {
				result, err := b.Books().Search(query)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				noMatch := fmt.Errorf("search %q: %w", result.Query, types.ErrNoMatches)
				if opts.jsonMode {
					if err := printJSON(out, result); err != nil {
						return err
					}
					if !result.Found() {
						return userError(noMatch)
					}
					return nil
				}
				if !result.Found() {
					return warning(cmd, fmt.Sprintf("No books found matching '%s'", result.Query), noMatch)
				}
				fmt.Fprintf(out, "Found %d book(s) matching '%s'\n", len(result.Books), result.Query)
				printBooks(out, result.Books, result.Selected)
				return nil
			})
		},
	}
}

func newBookDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book with no active loans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				book, err := b.Books().Get(id)
				if err != nil {
					return fmt.Errorf("book %d: %w", id, err)
				}
				return deleteRow(cmd, b.Books(), "book", book.ID, book.Title, yes)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newBookBorrowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <id>",
		Short: "Mark a book as borrowed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				if err := b.Books().Borrow(id); err != nil {
					return fmt.Errorf("book %d: %w", id, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Book borrowed successfully")
				return nil
			})
		},
	}
}

func newBookReturnCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <id>",
		Short: "Mark a book as available",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return withLibrary(opts, func(b *sqlite.Backend) error {
				if err := b.Books().Return(id); err != nil {
					return fmt.Errorf("book %d: %w", id, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Book returned successfully")
				return nil
			})
		},
	}
}

// printBooks writes books as a table. The row whose id equals selected is
// marked with *.
func printBooks(w io.Writer, books []types.Book, selected *int64) {
	rows := make([][]string, 0, len(books))
	for _, book := range books {
		mark := ""
		if selected != nil && *selected == book.ID {
			mark = "*"
		}
		rows = append(rows, []string{
			mark + strconv.FormatInt(book.ID, 10),
			book.Title,
			book.Author,
			formatYear(book.Year),
			strconv.FormatInt(book.Quantity, 10),
			book.Status(),
		})
	}
	printTable(w, []string{"ID", "TITLE", "AUTHOR", "YEAR", "QUANTITY", "STATUS"}, rows)
}
