package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	log "github.com/go-pkgz/lgr"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// userErrors are the sentinels reported with exitUserError. Anything else
// that reaches the CLI is a storage or system failure.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrNoSelection,
	types.ErrActiveLoans,
	types.ErrBookNotFound,
	types.ErrMemberNotFound,
	types.ErrNotEmpty,
	types.ErrInvalidTitle,
	types.ErrInvalidAuthor,
	types.ErrInvalidYear,
	types.ErrInvalidQuantity,
	types.ErrInvalidName,
	types.ErrDuplicateEmail,
	types.ErrEmptyQuery,
	types.ErrNoMatches,
	types.ErrAlreadyBorrowed,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrDBFileInvalid,
}

func userError(err error) error { return &exitError{code: exitUserError, err: err} }

// warning prints msg to stdout and returns err as a user error that
// Execute does not print again.
func warning(cmd *cobra.Command, msg string, err error) error {
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return &exitError{code: exitUserError, err: err, reported: true}
}
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// classify assigns an exit code to err unless it already carries one.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return sysError(err)
}

// withLibrary attaches a backend for the duration of fn and detaches it
// afterwards. Errors are classified for the exit code.
func withLibrary(opts *rootOptions, fn func(b *sqlite.Backend) error) error {
	cfg, err := opts.libraryConfig()
	if err != nil {
		return sysError(err)
	}

	b := sqlite.NewBackend(sqlite.WithClock(opts.now))
	if err := b.Attach(cfg); err != nil {
		return classify(fmt.Errorf("attach library: %w", err))
	}
	defer func() {
		if err := b.Detach(); err != nil {
			log.Printf("[WARN] detach library: %v", err)
		}
	}()

	return classify(fn(b))
}

// parseID reads the selected row id from the first positional argument.
func parseID(args []string) (int64, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return 0, userError(types.ErrNoSelection)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("%q: %w", args[0], types.ErrInvalidID))
	}
	return id, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printTable writes header and rows as aligned columns, trimming trailing
// padding from each line.
func printTable(w io.Writer, header []string, rows [][]string) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// loanGuarded is a catalog table whose rows cannot be deleted while on loan.
type loanGuarded interface {
	ActiveLoans(id int64) (int, error)
	Delete(id int64) error
}

// deleteRow refuses a row with active loans, asks for confirmation unless
// yes is set, then deletes it. kind names the row in messages.
func deleteRow(cmd *cobra.Command, t loanGuarded, kind string, id int64, label string, yes bool) error {
	active, err := t.ActiveLoans(id)
	if err != nil {
		return fmt.Errorf("%s %d: %w", kind, id, err)
	}
	if active > 0 {
		return userError(fmt.Errorf("cannot delete %s %d with %d active loan(s): %w", kind, id, active, types.ErrActiveLoans))
	}

	if !yes {
		ok, err := confirm(cmd, fmt.Sprintf("Delete %s %d %q?", kind, id, label))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
	}

	if err := t.Delete(id); err != nil {
		return fmt.Errorf("cannot delete %s %d: %w", kind, id, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%s deleted successfully\n", strings.ToUpper(kind[:1]), kind[1:])
	return nil
}

// confirm asks a yes/no question on the command's stdin. Anything but
// y or yes declines, including end of input.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, sysError(fmt.Errorf("read confirmation: %w", err))
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func formatYear(year *int64) string {
	if year == nil {
		return ""
	}
	return strconv.FormatInt(*year, 10)
}

func formatOptional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
