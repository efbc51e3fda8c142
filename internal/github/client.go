package gh

import (
	"context"
	"time"
)

// User is the account a token belongs to.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Repository describes a repository the user can see.
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         string    `json:"owner"`
	Private       bool      `json:"private"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CommitSummary is one entry of a branch's commit history.
type CommitSummary struct {
	SHA         string    `json:"sha"`
	Message     string    `json:"message"`
	AuthorName  string    `json:"author_name"`
	AuthorLogin string    `json:"author_login"`
	AuthorDate  time.Time `json:"author_date"`
	HTMLURL     string    `json:"html_url"`
}

// CommitFile is a file touched by a commit.
type CommitFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch,omitempty"`
}

// CommitDetail is a commit together with its changed files.
type CommitDetail struct {
	CommitSummary
	Files []CommitFile `json:"files"`
}

// Client exposes the read-only GitHub operations used to pick a commit.
type Client interface {
	CurrentUser(ctx context.Context) (User, error)
	ListRepositories(ctx context.Context) ([]Repository, error)
	ListCommits(ctx context.Context, owner, repo, branch string) ([]CommitSummary, error)
	GetCommit(ctx context.Context, owner, repo, sha string) (CommitDetail, error)
}

// Factory builds clients authenticated with a token.
type Factory interface {
	New(ctx context.Context, token string) (Client, error)
}
