// Command diggs-validate validates DIGGS XML documents against a local copy of
// the DIGGS schemas.
package main

import (
	"context"
	"os"

	"github.com/moolekkari/diggs-validator/internal/cli"
)

// version is set via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	return cli.Execute(context.Background(), version)
}
