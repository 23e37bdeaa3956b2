// Package cli contains the diggs-validate command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moolekkari/diggs-validator"
	"github.com/moolekkari/diggs-validator/internal/config"
)

// App carries what every command shares: the filesystem, the loaded
// configuration and the logger built from it.
type App struct {
	fs  afero.Fs
	now func() time.Time

	cfgFile   string
	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer
}

// NewApp creates an App reading documents and schemas from fs.
func NewApp(fs afero.Fs) *App {
	return &App{fs: fs, now: time.Now, logger: log.New(io.Discard)}
}

// Close releases the log file, if one was opened.
func (a *App) Close() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

// setup loads the configuration and builds the logger. It runs before every command.
func (a *App) setup(cmd *cobra.Command) error {
	cfg, used, err := config.Load(config.LoadOptions{
		ConfigFilePath: a.cfgFile,
		Flags:          cmd.Flags(),
	})
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg, cmd.ErrOrStderr(), a.fs, a.now())
	if err != nil {
		return err
	}
	a.cfg, a.logger, a.logCloser = cfg, logger, closer

	if used != "" {
		a.logger.Debug("loaded config", "file", used)
	}
	return nil
}

// validator creates a Validator for the configured schema directory.
func (a *App) validator() (*diggs.Validator, error) {
	return diggs.New(a.cfg.SchemaDir, diggs.WithFs(a.fs), diggs.WithLogger(a.logger))
}

// NewRootCommand creates the diggs-validate command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Validate DIGGS XML documents against local schemas",
		Long: TitleStyle.Render(config.AppName) + SubtitleStyle.Render(" - Validate DIGGS XML documents against local schemas") + `

The DIGGS version is selected from the document's default namespace. Every
schema include, import and external entity is resolved inside the local schema
directory; nothing is fetched over the network.

` + SubtitleStyle.Render("Schema directory layout:") + `
  schema-dev/Diggs.xsd                 development line
  schemas/2.6/Diggs.xsd                DIGGS 2.6
  schemas/<version>/Complete.xsd       DIGGS 2.5.a, 2.1.a, 2.0.b
  schemas/2.0a/schemas/Complete.xsd    DIGGS 2.0a

` + SubtitleStyle.Render("Examples:") + `
  diggs-validate validate boring.xml               Validate one document
  diggs-validate validate -f json *.xml            Validate many, report as JSON
  diggs-validate versions                          List supported versions
  diggs-validate resolve Kernel.xsd               Show where an identifier resolves`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.cfgFile, "config", "", "config file (default is ./diggs-validate.yaml or $XDG_CONFIG_HOME/diggs-validate/)")
	flags.String("schema-dir", diggs.DefaultSchemaDir, "directory holding the schema-dev/ and schemas/ trees")
	flags.Bool("debug", false, "log every resolution step")
	flags.String("log-level", "error", "log level (debug, info, warn, error, fatal)")
	flags.String("log-format", "text", "log format (text, json, logfmt)")
	flags.String("log-dir", "", "also write logs to a daily file in this directory")

	root.AddCommand(newValidateCommand(app))
	root.AddCommand(newVersionsCommand(app))
	root.AddCommand(newResolveCommand(app))
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, version string) int {
	app := NewApp(afero.NewOsFs())
	defer app.Close()

	if err := fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

// exitf returns an ExitError with code 1.
func exitf(format string, args ...any) error {
	return &ExitError{Code: 1, Err: fmt.Errorf(format, args...)}
}
