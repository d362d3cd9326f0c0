package main

import (
	"errors"
	"os"

	"github.com/custodia-labs/harvest-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// version is overridden at build time with -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

// run maps error classes to exit codes: 1 for invalid arguments, 2 for
// configuration and service failures, 3 for anything unclassified.
func run() int {
	err := cli.Execute(version)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidInput):
		return 1
	case errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrServiceFailure),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrAmbiguousQuery),
		errors.Is(err, domain.ErrSchemaValidation),
		errors.Is(err, domain.ErrNotFound):
		return 2
	default:
		return 3
	}
}
