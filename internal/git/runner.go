package git

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/easygit/easy-git/internal/failure"
)

// Runner executes an external version-control command.
type Runner interface {
	// Run launches name with args in dir (the current directory when dir is
	// empty) and waits for it to exit. A non-zero exit is reported through
	// Outcome, not as an error. The returned error is non-nil only when the
	// process could not be started, or ctx ended while it was running.
	Run(ctx context.Context, dir, name string, args ...string) (Outcome, error)
}

// Outcome is the captured result of a finished command.
type Outcome struct {
	Succeeded bool
	Stdout    string
	Stderr    string
	// ExitCode is nil when the process did not exit normally (e.g. it was
	// killed by a signal).
	ExitCode *int
}

// FailureText returns the most useful description of a failed command: its
// stderr, then its stdout, then a message synthesized from the exit status.
func (o Outcome) FailureText(command string) string {
	if msg := strings.TrimSpace(o.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(o.Stdout); msg != "" {
		return msg
	}
	if o.ExitCode != nil {
		return fmt.Sprintf("%s failed with exit code %d", command, *o.ExitCode)
	}
	return fmt.Sprintf("%s failed without an exit code", command)
}

// Err returns nil when the command succeeded and a KindCommand failure
// carrying a *CommandError otherwise.
func (o Outcome) Err(name string, args ...string) error {
	if o.Succeeded {
		return nil
	}
	return failure.Wrap(failure.KindCommand, &CommandError{Name: name, Args: RedactArgs(args), Outcome: o}, "")
}

// CommandError reports a command that ran and exited unsuccessfully.
type CommandError struct {
	Name    string
	Args    []string
	Outcome Outcome
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	return e.Outcome.FailureText(e.command())
}

func (e *CommandError) command() string {
	if sub := primaryGitCommand(e.Args); sub != "" {
		return e.Name + " " + sub
	}
	return e.Name
}

// RedactArgs hides credentials embedded in URL arguments so they can be
// logged or returned to callers.
func RedactArgs(args []string) []string {
	redacted := make([]string, len(args))
	for i, arg := range args {
		redacted[i] = redactURL(arg)
	}
	return redacted
}

func redactURL(arg string) string {
	if !strings.Contains(arg, "://") || !strings.Contains(arg, "@") {
		return arg
	}
	parsed, err := url.Parse(arg)
	if err != nil || parsed.User == nil {
		return arg
	}
	return parsed.Redacted()
}

func primaryGitCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "-C", "--git-dir", "-c":
				i++
			}
			continue
		}
		return arg
	}
	return ""
}
