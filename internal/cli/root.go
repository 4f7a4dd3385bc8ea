// Package cli is the festmoment terminal client. It drives the same backend
// client and itinerary store as the web server, with the course kept in a JSON
// file under the data directory.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
)

// Options injects collaborators, mainly for tests. Zero values select the
// real ones.
type Options struct {
	Backend backend.Service
	Out     io.Writer
	Err     io.Writer
	Now     func() time.Time
}

type globalFlags struct {
	backendURL string
	basePath   string
	dataDir    string
	owner      string
	lang       string
	verbose    bool
	jsonOutput bool
}

// Run executes args and releases what the command opened.
func Run(ctx context.Context, args []string, opts Options) error {
	root, app := newRoot(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	app.close()
	return err
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

func newRoot(opts Options) (*cobra.Command, *app) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	flags := &globalFlags{}
	app := &app{opts: opts, flags: flags}

	root := &cobra.Command{
		Use:           "festmoment",
		Version:       "dev",
		Short:         "Search festivals and plan a course from the terminal",
		Long:          "festmoment searches the festival catalog, shows analysis reports and keeps a\ntravel course that persists between runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.backendURL, "backend-url", os.Getenv("FESTMOMENT_BACKEND_URL"), "backend base URL; empty uses the offline catalog")
	pf.StringVar(&flags.basePath, "base-path", "/api", "backend API path prefix")
	pf.StringVar(&flags.dataDir, "data-dir", defaultDataDir(), "directory the course is stored in")
	pf.StringVar(&flags.owner, "owner", "", "course name, for keeping several courses side by side")
	pf.StringVar(&flags.lang, "lang", "ko", "date and label language (ko or en)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&flags.jsonOutput, "json", false, "print JSON instead of tables")

	root.AddGroup(
		&cobra.Group{ID: "discover", Title: "Discover:"},
		&cobra.Group{ID: "plan", Title: "Plan:"},
	)
	root.AddCommand(
		newSearchCmd(app),
		newShowCmd(app),
		newRankCmd(app),
		newCourseCmd(app),
	)
	return root, app
}

func defaultDataDir() string {
	if dir := os.Getenv("FESTMOMENT_DATA_DIR"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "festmoment")
	}
	return ".festmoment"
}
