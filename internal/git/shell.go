package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/easygit/easy-git/internal/failure"
)

// ShellRunner runs commands as child processes of the current program.
type ShellRunner struct {
	// Env is appended to the inherited environment of every command.
	Env []string

	// Log receives a debug record per command. May be nil.
	Log *slog.Logger
}

// NewShellRunner returns a Runner backed by os/exec.
func NewShellRunner(logger *slog.Logger) *ShellRunner {
	return &ShellRunner{Log: logger}
}

func (r *ShellRunner) Run(ctx context.Context, dir, name string, args ...string) (Outcome, error) {
	if r.Log != nil {
		r.Log.Debug("running command", "command", name, "args", RedactArgs(args), "dir", dir)
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, r.Env...)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Outcome{}, failure.Wrap(failure.KindLaunch, err, fmt.Sprintf("launch %s", name))
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		terminateProcessGroup(cmd)
		<-done
		return Outcome{}, ctx.Err()
	case waitErr = <-done:
	}

	outcome := Outcome{
		Succeeded: waitErr == nil,
		Stdout:    decode(stdout.Bytes()),
		Stderr:    decode(stderr.Bytes()),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		code := 0
		outcome.ExitCode = &code
	case errors.As(waitErr, &exitErr):
		if code := exitErr.ExitCode(); code >= 0 {
			outcome.ExitCode = &code
		}
	}

	if r.Log != nil {
		r.Log.Debug("command finished", "command", name, "succeeded", outcome.Succeeded, "exit_code", exitCodeAttr(outcome.ExitCode))
	}

	return outcome, nil
}

func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func exitCodeAttr(code *int) any {
	if code == nil {
		return "none"
	}
	return *code
}
