package cli

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moolekkari/diggs-validator"
	"github.com/moolekkari/diggs-validator/internal/config"
)

// stdinName reads the document from standard input.
const stdinName = "-"

// report is the outcome for one input file.
type report struct {
	File         string `json:"file" yaml:"file"`
	diggs.Result `yaml:",inline"`
}

func newValidateCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate DIGGS documents",
		Long: `Validate one or more DIGGS XML documents. Use - to read from standard input.

Documents are validated in parallel. The command exits with status 1 when any
document is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, app, args)
		},
	}

	cmd.Flags().StringP("format", "f", config.FormatText, "output format (text, json, yaml)")
	cmd.Flags().IntP("jobs", "j", 0, "documents validated in parallel (default is the number of CPUs)")
	return cmd
}

func runValidate(cmd *cobra.Command, app *App, files []string) error {
	v, err := app.validator()
	if err != nil {
		return err
	}

	reports := make([]report, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(app.cfg.Jobs)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := readDocument(app.fs, cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			app.logger.Info("validating", "file", file)
			reports[i] = report{File: file, Result: v.Validate(raw)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := render(cmd.OutOrStdout(), app.cfg.Format, reports); err != nil {
		return err
	}

	invalid := 0
	for _, r := range reports {
		if !r.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return exitf("%d of %d documents failed validation", invalid, len(reports))
	}
	return nil
}

func readDocument(fs afero.Fs, stdin io.Reader, file string) ([]byte, error) {
	if file == stdinName {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return raw, nil
	}
	raw, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return raw, nil
}
