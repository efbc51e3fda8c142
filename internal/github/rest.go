package gh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	github "github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/easygit/easy-git/internal/failure"
)

const (
	defaultUserAgent = "easy-git"
	pageSize         = 100
)

// NewRESTFactory returns a Factory backed by the go-github REST client. When
// baseURL is set the factory targets a GitHub Enterprise instance; uploadURL
// defaults to baseURL.
func NewRESTFactory(baseURL, uploadURL string) Factory {
	return &restFactory{
		userAgent: defaultUserAgent,
		baseURL:   strings.TrimSpace(baseURL),
		uploadURL: strings.TrimSpace(uploadURL),
	}
}

type restFactory struct {
	userAgent string
	baseURL   string
	uploadURL string
}

type restClient struct {
	client *github.Client
}

func (f *restFactory) New(ctx context.Context, token string) (Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, failure.New(failure.KindConfiguration, "github token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	if f.baseURL == "" && f.uploadURL != "" {
		return nil, failure.New(failure.KindConfiguration, "github upload url cannot be set without base url")
	}

	var ghClient *github.Client
	if f.baseURL != "" {
		baseURLNormalized, err := normalizeGitHubURL(f.baseURL)
		if err != nil {
			return nil, failure.Wrap(failure.KindConfiguration, err, "parse github base url")
		}

		uploadURL := f.uploadURL
		if uploadURL == "" {
			uploadURL = f.baseURL
		}
		uploadURLNormalized, err := normalizeGitHubURL(uploadURL)
		if err != nil {
			return nil, failure.Wrap(failure.KindConfiguration, err, "parse github upload url")
		}

		ghClient, err = github.NewClient(tc).WithEnterpriseURLs(baseURLNormalized, uploadURLNormalized)
		if err != nil {
			return nil, failure.Wrap(failure.KindConfiguration, err, "construct enterprise github client")
		}
	} else {
		ghClient = github.NewClient(tc)
	}

	if f.userAgent != "" {
		ghClient.UserAgent = f.userAgent
	}

	return &restClient{client: ghClient}, nil
}

func normalizeGitHubURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		return "", fmt.Errorf("url must include scheme (e.g. https://)")
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("url must include host")
	}

	if parsed.Path == "" {
		parsed.Path = "/"
	} else if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String(), nil
}

// CurrentUser doubles as token validation: an invalid token fails here.
func (c *restClient) CurrentUser(ctx context.Context) (User, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return User{}, classifyGitHubError(err, "get authenticated user")
	}
	return User{
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
	}, nil
}

// ListRepositories returns the first page of the authenticated user's
// repositories, most recently updated first.
func (c *restClient) ListRepositories(ctx context.Context) ([]Repository, error) {
	opts := &github.RepositoryListOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	repos, _, err := c.client.Repositories.List(ctx, "", opts)
	if err != nil {
		return nil, classifyGitHubError(err, "list repositories")
	}

	results := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		if repo == nil {
			continue
		}
		result := Repository{
			ID:            repo.GetID(),
			Name:          repo.GetName(),
			FullName:      repo.GetFullName(),
			Private:       repo.GetPrivate(),
			Description:   repo.GetDescription(),
			DefaultBranch: repo.GetDefaultBranch(),
			UpdatedAt:     repo.GetUpdatedAt().Time,
		}
		if owner := repo.GetOwner(); owner != nil {
			result.Owner = owner.GetLogin()
		}
		results = append(results, result)
	}
	return results, nil
}

// ListCommits returns the first page of commits reachable from branch. An
// empty branch means the repository's default branch.
func (c *restClient) ListCommits(ctx context.Context, owner, repo, branch string) ([]CommitSummary, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	commits, _, err := c.client.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return nil, classifyGitHubError(err, fmt.Sprintf("list commits for %s/%s", owner, repo))
	}

	results := make([]CommitSummary, 0, len(commits))
	for _, commit := range commits {
		if commit == nil {
			continue
		}
		results = append(results, summarize(commit))
	}
	return results, nil
}

func (c *restClient) GetCommit(ctx context.Context, owner, repo, sha string) (CommitDetail, error) {
	commit, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, sha, nil)
	if err != nil {
		return CommitDetail{}, classifyGitHubError(err, fmt.Sprintf("get commit %s", sha))
	}

	detail := CommitDetail{CommitSummary: summarize(commit)}
	for _, file := range commit.Files {
		if file == nil {
			continue
		}
		detail.Files = append(detail.Files, CommitFile{
			Filename:  file.GetFilename(),
			Status:    file.GetStatus(),
			Additions: file.GetAdditions(),
			Deletions: file.GetDeletions(),
			Changes:   file.GetChanges(),
			Patch:     file.GetPatch(),
		})
	}
	return detail, nil
}

func summarize(commit *github.RepositoryCommit) CommitSummary {
	summary := CommitSummary{
		SHA:     commit.GetSHA(),
		HTMLURL: commit.GetHTMLURL(),
	}
	if inner := commit.GetCommit(); inner != nil {
		summary.Message = inner.GetMessage()
		if author := inner.GetAuthor(); author != nil {
			summary.AuthorName = author.GetName()
			summary.AuthorDate = author.GetDate().Time
		}
	}
	if author := commit.GetAuthor(); author != nil {
		summary.AuthorLogin = author.GetLogin()
	}
	return summary
}

// classifyGitHubError sorts API failures into network failures (transport
// problems, timeouts, rate limits, 5xx) and protocol failures (everything
// the API answered with). Context errors pass through untouched.
func classifyGitHubError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isTransientGitHubError(err) {
		return failure.Wrap(failure.KindNetwork, err, action)
	}
	return failure.Wrap(failure.KindProtocol, err, action)
}

func isTransientGitHubError(err error) bool {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response != nil {
			code := respErr.Response.StatusCode
			if code == http.StatusTooManyRequests || (code >= 500 && code <= 599) {
				return true
			}
		}
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
