package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moolekkari/diggs-validator"
)

func newVersionsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the supported DIGGS versions",
		Long:  "List every supported DIGGS version, its namespace and whether its root schema is present in the schema directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			schemaDir := app.cfg.SchemaDir

			fmt.Fprintln(w, TitleStyle.Render("DIGGS versions"))
			fmt.Fprintf(w, "%s %s\n\n", SubtitleStyle.Render("Schema directory:"), PathStyle.Render(schemaDir))

			for _, version := range diggs.Versions() {
				rootPath := version.RootSchemaPath(schemaDir)
				status := SuccessStyle.Render(successIcon + " present")
				if ok, _ := afero.Exists(app.fs, rootPath); !ok {
					status = WarningStyle.Render(warningIcon + " missing")
				}
				fmt.Fprintf(w, "  %-6s %-34s %s  %s\n", version.Tag, version.Namespace, status, PathStyle.Render(rootPath))
			}
			return nil
		},
	}
}
