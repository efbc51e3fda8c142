// Package app wires configuration, logging, git, GitHub and OAuth into the
// operations the easy-git commands expose.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/easygit/easy-git/internal/git"
	gh "github.com/easygit/easy-git/internal/github"
	"github.com/easygit/easy-git/internal/oauth"
	"github.com/easygit/easy-git/internal/revert"
	"github.com/easygit/easy-git/internal/workspace"
)

// Deps are the collaborators a Service uses. Zero values select the real
// implementations.
type Deps struct {
	Runner      git.Runner
	GitHub      gh.Factory
	Credentials oauth.Source
	OpenBrowser func(url string) error
	Prompt      func(url string)

	OAuthEndpoint oauth2.Endpoint
	HTTPClient    *http.Client
}

// Service exposes the easy-git operations. Calls are independent; nothing
// is shared between them beyond configuration.
type Service struct {
	cfg        Config
	log        *slog.Logger
	runner     git.Runner
	workspaces *workspace.Manager
	ghFactory  gh.Factory
	deps       Deps
}

// NewService constructs a Service with the real collaborators.
func NewService(cfg Config, logger *slog.Logger) *Service {
	return NewServiceWithDeps(cfg, logger, Deps{})
}

// NewServiceWithDeps constructs a Service with injected dependencies.
func NewServiceWithDeps(cfg Config, logger *slog.Logger, deps Deps) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	runner := deps.Runner
	if runner == nil {
		if cfg.DryRun {
			runner = git.NewDryRunRunner(logger)
		} else {
			runner = git.NewShellRunner(logger)
		}
	}

	factory := deps.GitHub
	if factory == nil {
		factory = gh.NewRESTFactory(cfg.GitHubBaseURL, cfg.GitHubUploadURL)
	}

	if deps.Credentials == nil {
		deps.Credentials = oauth.EnvSource{}
	}

	return &Service{
		cfg:        cfg,
		log:        logger,
		runner:     runner,
		workspaces: workspace.NewManager(cfg.ScratchDir, logger),
		ghFactory:  factory,
		deps:       deps,
	}
}

// op returns a logger tagged with a fresh operation id.
func (s *Service) op(name string) *slog.Logger {
	return s.log.With("op", name, "op_id", uuid.NewString())
}

func (s *Service) pipeline(logger *slog.Logger) *revert.Pipeline {
	return revert.New(revert.Config{
		Git:  s.cfg.GitBinary,
		Host: remoteHost(s.cfg.GitHubBaseURL),
	}, s.runner, s.workspaces, logger)
}

// RevertInPlace reverts sha inside the working copy at dir.
func (s *Service) RevertInPlace(ctx context.Context, sha, dir string) (string, error) {
	logger := s.op("revert_in_place")
	out, err := s.pipeline(logger).RevertInPlace(ctx, sha, dir)
	if err != nil {
		logger.Error("revert in place failed", "error", err)
		return "", err
	}
	return out, nil
}

// RevertViaTempClone reverts sha on branch of owner/repo through a scratch
// clone and pushes the result.
func (s *Service) RevertViaTempClone(ctx context.Context, owner, repo, sha, branch, token string) (string, error) {
	logger := s.op("revert_via_temp_clone")
	summary, err := s.pipeline(logger).RevertViaTempClone(ctx, revert.Request{
		Owner:  owner,
		Repo:   repo,
		SHA:    sha,
		Branch: branch,
		Token:  token,
	})
	if err != nil {
		stage, _ := revert.FailedStage(err)
		logger.Error("temp-clone revert failed", "stage", stage, "error", err)
		return "", err
	}
	return summary, nil
}

// OAuthLogin signs the user in through the browser and returns the access
// token.
func (s *Service) OAuthLogin(ctx context.Context) (string, error) {
	logger := s.op("oauth_login")
	flow := &oauth.Flow{
		Port:        s.cfg.CallbackPort,
		Source:      s.deps.Credentials,
		Endpoint:    s.deps.OAuthEndpoint,
		OpenBrowser: s.deps.OpenBrowser,
		Prompt:      s.deps.Prompt,
		HTTPClient:  s.deps.HTTPClient,
		Log:         logger,
	}
	result, err := flow.Login(ctx)
	if err != nil {
		return "", err
	}
	logger.Info("oauth login succeeded", "scope", result.Scope)
	return result.AccessToken, nil
}

// WhoAmI validates token and returns its user.
func (s *Service) WhoAmI(ctx context.Context, token string) (gh.User, error) {
	client, err := s.client(ctx, token)
	if err != nil {
		return gh.User{}, err
	}
	logger := s.op("whoami")
	user, err := client.CurrentUser(ctx)
	if err != nil {
		logger.Error("token validation failed", "error", err)
		return gh.User{}, err
	}
	logger.Debug("token validated", "login", user.Login)
	return user, nil
}

// Repositories lists the user's most recently updated repositories.
func (s *Service) Repositories(ctx context.Context, token string) ([]gh.Repository, error) {
	client, err := s.client(ctx, token)
	if err != nil {
		return nil, err
	}
	logger := s.op("repositories")
	repos, err := client.ListRepositories(ctx)
	if err != nil {
		logger.Error("list repositories failed", "error", err)
		return nil, err
	}
	logger.Debug("listed repositories", "count", len(repos))
	return repos, nil
}

// Commits lists recent commits on branch of owner/repo.
func (s *Service) Commits(ctx context.Context, token, owner, repo, branch string) ([]gh.CommitSummary, error) {
	client, err := s.client(ctx, token)
	if err != nil {
		return nil, err
	}
	logger := s.op("commits").With("owner", owner, "repo", repo, "branch", branch)
	commits, err := client.ListCommits(ctx, owner, repo, branch)
	if err != nil {
		logger.Error("list commits failed", "error", err)
		return nil, err
	}
	logger.Debug("listed commits", "count", len(commits))
	return commits, nil
}

// Commit returns one commit of owner/repo with its files.
func (s *Service) Commit(ctx context.Context, token, owner, repo, sha string) (gh.CommitDetail, error) {
	client, err := s.client(ctx, token)
	if err != nil {
		return gh.CommitDetail{}, err
	}
	logger := s.op("commit").With("owner", owner, "repo", repo, "commit", sha)
	detail, err := client.GetCommit(ctx, owner, repo, sha)
	if err != nil {
		logger.Error("get commit failed", "error", err)
		return gh.CommitDetail{}, err
	}
	return detail, nil
}

func (s *Service) client(ctx context.Context, token string) (gh.Client, error) {
	client, err := s.ghFactory.New(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("initialize github client: %w", err)
	}
	return client, nil
}

// remoteHost derives the git host from a GitHub API URL. An "api." label is
// dropped since that host serves only the REST API, so
// https://api.github.com/ maps to github.com. It returns "" for public GitHub.
func remoteHost(baseURL string) string {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return ""
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	if trimmed := strings.TrimPrefix(host, "api."); trimmed != host && trimmed != "" {
		host = trimmed
	}
	if host == "github.com" {
		return ""
	}
	return host
}
