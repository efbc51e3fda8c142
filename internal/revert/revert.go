// Package revert undoes a single commit on a GitHub repository, either inside
// an existing working copy or through a throwaway partial clone.
package revert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/easygit/easy-git/internal/failure"
	"github.com/easygit/easy-git/internal/git"
)

// Stage names one step of the temp-clone pipeline.
type Stage string

const (
	StagePrepare  Stage = "prepare"
	StageClone    Stage = "clone"
	StageCheckout Stage = "checkout"
	StageRevert   Stage = "revert"
	StagePush     Stage = "push"
)

const defaultHost = "github.com"

// Request identifies the commit to revert and where to push the result.
type Request struct {
	Owner  string
	Repo   string
	SHA    string
	Branch string
	// Token, when set, is embedded in the HTTPS remote.
	Token string
}

// Workspaces hands out scratch directories for clones.
type Workspaces interface {
	Prepare(owner, repo string) (string, error)
	Dispose(path string)
}

// Config controls how the pipeline talks to git and GitHub.
type Config struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string

	// Host is the GitHub host used in remote URLs. Defaults to github.com.
	Host string

	// RemoteURL overrides remote construction entirely. Used to point the
	// pipeline at local repositories.
	RemoteURL func(owner, repo, token string) string
}

// Pipeline runs the revert workflows.
type Pipeline struct {
	cfg        Config
	runner     git.Runner
	workspaces Workspaces
	log        *slog.Logger
}

// New returns a configured Pipeline.
func New(cfg Config, runner git.Runner, workspaces Workspaces, logger *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, runner: runner, workspaces: workspaces, log: logger}
}

// StageError reports which stage of the pipeline failed. Its message is the
// captured git output, so callers can show it to users as-is.
type StageError struct {
	Stage   Stage
	Outcome *git.Outcome
	Err     error
}

func (e *StageError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

// RevertViaTempClone clones the repository into a scratch workspace, reverts
// req.SHA on req.Branch and pushes the result to origin. The workspace is
// removed on every return path.
func (p *Pipeline) RevertViaTempClone(ctx context.Context, req Request) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}
	if p.runner == nil || p.workspaces == nil {
		return "", failure.New(failure.KindConfiguration, "revert pipeline is not configured")
	}

	logger := p.logger().With("owner", req.Owner, "repo", req.Repo, "branch", req.Branch, "commit", req.SHA)

	dir, err := p.workspaces.Prepare(req.Owner, req.Repo)
	if err != nil {
		return "", &StageError{Stage: StagePrepare, Err: err}
	}
	defer func() {
		p.workspaces.Dispose(dir)
		logger.Debug("workspace disposed", "path", dir)
	}()

	logger.Info("starting temp-clone revert", "workspace", dir)

	remote := p.remoteURL(req.Owner, req.Repo, req.Token)
	steps := []struct {
		stage Stage
		dir   string
		args  []string
	}{
		{StageClone, filepath.Dir(dir), []string{"clone", "--filter=blob:none", "--no-checkout", remote, dir}},
		{StageCheckout, dir, []string{"checkout", req.Branch}},
		{StageRevert, dir, []string{"revert", "--no-edit", req.SHA}},
		{StagePush, dir, []string{"push", "origin", req.Branch}},
	}

	var last git.Outcome
	for _, step := range steps {
		outcome, err := p.run(ctx, step.stage, step.dir, step.args...)
		if err != nil {
			logger.Warn("revert stage failed", "stage", step.stage, "error", err)
			return "", err
		}
		logger.Debug("revert stage completed", "stage", step.stage)
		last = outcome
	}

	logger.Info("revert pushed")
	return Summary(req, last.Stdout), nil
}

// RevertInPlace reverts sha inside an existing working copy at dir, or in
// the current directory when dir is empty. Nothing is cloned or pushed.
func (p *Pipeline) RevertInPlace(ctx context.Context, sha, dir string) (string, error) {
	if err := validateRef("commit sha", sha); err != nil {
		return "", err
	}
	if p.runner == nil {
		return "", failure.New(failure.KindConfiguration, "revert pipeline is not configured")
	}

	p.logger().Info("reverting in place", "commit", sha, "dir", dir)

	outcome, err := p.run(ctx, StageRevert, dir, "revert", "--no-edit", sha)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(outcome.Stdout), nil
}

func (p *Pipeline) run(ctx context.Context, stage Stage, dir string, args ...string) (git.Outcome, error) {
	outcome, err := p.runner.Run(ctx, dir, p.gitBinary(), args...)
	if err != nil {
		return outcome, &StageError{Stage: stage, Err: err}
	}
	if err := outcome.Err(p.gitBinary(), args...); err != nil {
		return outcome, &StageError{Stage: stage, Outcome: &outcome, Err: err}
	}
	return outcome, nil
}

func (p *Pipeline) gitBinary() string {
	if p.cfg.Git == "" {
		return "git"
	}
	return p.cfg.Git
}

func (p *Pipeline) remoteURL(owner, repo, token string) string {
	if p.cfg.RemoteURL != nil {
		return p.cfg.RemoteURL(owner, repo, token)
	}
	return RemoteURL(p.cfg.Host, owner, repo, token)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.log != nil {
		return p.log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RemoteURL builds the HTTPS clone URL for owner/repo on host, embedding
// token with the x-access-token user when it is non-empty.
func RemoteURL(host, owner, repo, token string) string {
	if host == "" {
		host = defaultHost
	}
	if token == "" {
		return fmt.Sprintf("https://%s/%s/%s.git", host, owner, repo)
	}
	return fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", token, host, owner, repo)
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Owner) == "" || strings.TrimSpace(r.Repo) == "" {
		return failure.New(failure.KindConfiguration, "owner and repo are required")
	}
	if err := validateRef("commit sha", r.SHA); err != nil {
		return err
	}
	return validateRef("branch", r.Branch)
}

func validateRef(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return failure.New(failure.KindConfiguration, "%s is required", field)
	}
	if strings.HasPrefix(value, "-") {
		return failure.New(failure.KindConfiguration, "invalid %s %q", field, value)
	}
	return nil
}
