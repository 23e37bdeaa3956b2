package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moolekkari/diggs-validator"
	"github.com/moolekkari/diggs-validator/xmlparser"
)

func newResolveCommand(app *App) *cobra.Command {
	var (
		tag      string
		referrer string
	)

	cmd := &cobra.Command{
		Use:   "resolve IDENTIFIER...",
		Short: "Show where schema identifiers resolve",
		Long: `Run schema identifiers through the resolver used during validation and show
the local file each one maps to. Every identifier is resolved independently, in
a single resolution context.

The command exits with status 1 when any identifier is unresolved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := diggs.LookupTag(tag)
			if err != nil {
				return err
			}
			resolver := diggs.NewResolver(
				diggs.NewResolutionContext(app.cfg.SchemaDir, version),
				diggs.WithFs(app.fs),
				diggs.WithLogger(app.logger),
			)

			w := cmd.OutOrStdout()
			unresolved := 0
			for _, id := range args {
				entity, err := resolver.Resolve(xmlparser.ResolveRequest{
					SystemID: xmlparser.ResolveLocation(baseDir(referrer), id),
					Referrer: referrer,
					Kind:     xmlparser.ResolveInclude,
				})
				if err != nil {
					return err
				}
				if entity == nil {
					unresolved++
					fmt.Fprintf(w, "%s %s -> %s\n", WarningStyle.Render(warningIcon), id, WarningStyle.Render("unresolved"))
					continue
				}
				fmt.Fprintf(w, "%s %s -> %s\n", SuccessStyle.Render(successIcon), id, PathStyle.Render(entity.SystemID))
			}

			if unresolved > 0 {
				return exitf("%d of %d identifiers unresolved", unresolved, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "schema-version", diggs.DefaultVersion, "DIGGS version tag providing the resolution context")
	cmd.Flags().StringVar(&referrer, "referrer", "", "schema file the identifiers are referenced from")
	return cmd
}

// baseDir is the directory relative identifiers are joined onto, the way the
// schema engine does before calling the resolver.
func baseDir(referrer string) string {
	if referrer == "" {
		return ""
	}
	return filepath.Dir(referrer)
}
