// Package cli implements the librarian command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootOptions holds global flag values and the loaded configuration for
// one command tree.
type rootOptions struct {
	configDir string
	dataDir   string
	jsonMode  bool
	debug     bool

	// Populated by PersistentPreRunE.
	resolvedConfigDir string
	config            *viper.Viper
	logFile           io.Closer

	// now stamps loan dates; tests replace it.
	now func() time.Time
}

// NewRootCmd creates the top-level "librarian" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newRootOptions())
}

func newRootOptions() *rootOptions {
	return &rootOptions{now: time.Now}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:     "librarian",
		Short:   "A small lending library kept in one SQLite file",
		Long:    "Librarian catalogs books and members and records loans\nin a local SQLite database.",
		Version: Version,
		// Errors carry their own exit code and are printed by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (default: $(CWD)/.librarian-db)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&opts.debug, "dbg", false, "debug logging to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newBookCmd(opts))
	root.AddCommand(newMemberCmd(opts))
	root.AddCommand(newLoanCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newImportCmd(opts))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	opts := newRootOptions()
	root := newRootCmd(opts)
	err := execute(root, opts)
	var ee *exitError
	if err != nil && !(errors.As(err, &ee) && ee.reported) {
		fmt.Fprintln(root.ErrOrStderr(), err)
	}
	os.Exit(exitCode(err))
}

// execute runs root and releases the log file whether or not the command
// failed.
func execute(root *cobra.Command, opts *rootOptions) error {
	err := root.Execute()
	if cerr := opts.closeLog(); cerr != nil && err == nil {
		err = sysError(fmt.Errorf("close log file: %w", cerr))
	}
	return err
}

// exitError attaches a process exit code to an error. A reported error
// has already been shown to the user.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps an error returned by the command tree to a process exit
// code. Errors without a code come from cobra argument and flag parsing.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// setupLogs routes lgr output to w. Debug adds [DEBUG] lines and caller
// info.
func setupLogs(w io.Writer, dbg bool) {
	if dbg {
		log.Setup(log.Debug, log.Msec, log.CallerFunc, log.CallerFile, log.Out(w), log.Err(w))
		return
	}
	log.Setup(log.Out(w), log.Err(w))
}
