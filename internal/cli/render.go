package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/moolekkari/diggs-validator/internal/config"
)

// render writes the reports in the requested format.
func render(w io.Writer, format string, reports []report) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return enc.Close()
	default:
		renderText(w, reports)
		return nil
	}
}

func renderText(w io.Writer, reports []report) {
	for _, r := range reports {
		if r.Valid {
			fmt.Fprintf(w, "%s %s: %s\n", SuccessStyle.Render(successIcon), PathStyle.Render(r.File), r.Messages[0])
			continue
		}

		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render(errorIcon), PathStyle.Render(r.File))
		for _, message := range r.Messages {
			fmt.Fprintf(w, "    %s\n", message)
		}
	}
}
