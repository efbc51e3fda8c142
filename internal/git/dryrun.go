package git

import (
	"context"
	"log/slog"
	"strings"
)

// NewDryRunRunner returns a Runner that only logs the commands it is asked to
// run. Every command succeeds with empty output.
func NewDryRunRunner(logger *slog.Logger) Runner {
	return &dryRunRunner{log: logger}
}

type dryRunRunner struct {
	log *slog.Logger
}

func (r *dryRunRunner) Run(ctx context.Context, dir, name string, args ...string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if r.log != nil {
		r.log.Info("dry run: skipping command", "command", name+" "+strings.Join(RedactArgs(args), " "), "dir", dir)
	}
	code := 0
	return Outcome{Succeeded: true, ExitCode: &code}, nil
}
