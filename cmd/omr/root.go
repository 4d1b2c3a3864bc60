package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// run executes the CLI with args and always releases what setup opened.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.teardown(root))
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "omr",
		Short: "OneMoreRev client - design review from the command line",
		Long: `omr talks to a OneMoreRev backend. Designers manage projects and
revisions; clients review submitted revisions with a guest access code and
pin feedback onto the delivered images.

Examples:
  # Log in and list your projects
  omr login --email ann@example.com
  omr projects list

  # Review a shared revision as a guest
  omr --access-code 7f3k feedback add --track t1 --x 100 --y 150 --width 400 --height 300 "Bolder mark"`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config", "", "Config directory (default: user config dir/onemorerev)")
	flags.StringVar(&a.server, "server", "", "Backend URL (overrides api.serverUrl)")
	flags.StringVar(&a.accessCode, "access-code", "", "Guest access code for a shared revision")
	flags.StringVarP(&a.format, "format", "f", formatTable, "Output format: table|json|yaml")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	flags.BoolVar(&a.stats, "stats", false, "Print backend request counts on exit")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProjectsCmd(a),
		newRevisionCmd(a),
		newTrackCmd(a),
		newFeedbackCmd(a),
		newFilesCmd(a),
	)
	return root, a
}
