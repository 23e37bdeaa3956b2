package diggs

import (
	"fmt"

	"github.com/moolekkari/diggs-validator/xmlparser"
)

// Normalize renders engine diagnostics as "Line L, Column C: message" strings,
// one per diagnostic, in the order the engine reported them.
func Normalize(diagnostics []xmlparser.Diagnostic) []string {
	messages := make([]string, len(diagnostics))
	for i, d := range diagnostics {
		messages[i] = fmt.Sprintf("Line %d, Column %d: %s", d.Line, d.Column, d.Message)
	}
	return messages
}
