package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/easygit/easy-git/internal/failure"
	gh "github.com/easygit/easy-git/internal/github"
)

// Output formats for browsing results.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

const shortSHALength = 7

// ValidateOutput rejects unknown output formats.
func ValidateOutput(format string) error {
	switch format {
	case OutputTable, OutputJSON:
		return nil
	default:
		return failure.New(failure.KindConfiguration, "unsupported output format %q (use %s or %s)", format, OutputTable, OutputJSON)
	}
}

// WriteUser renders the authenticated user.
func WriteUser(w io.Writer, format string, user gh.User) error {
	if format == OutputJSON {
		return writeJSON(w, user)
	}
	if user.Name != "" {
		_, err := fmt.Fprintf(w, "%s (%s)\n", user.Login, user.Name)
		return err
	}
	_, err := fmt.Fprintln(w, user.Login)
	return err
}

// WriteRepositories renders repositories as a table or JSON.
func WriteRepositories(w io.Writer, format string, repos []gh.Repository) error {
	if format == OutputJSON {
		return writeJSON(w, repos)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repository", "Visibility", "Default Branch", "Updated"})
	for _, repo := range repos {
		visibility := "public"
		if repo.Private {
			visibility = "private"
		}
		table.Append([]string{repo.FullName, visibility, repo.DefaultBranch, formatTime(repo.UpdatedAt)})
	}
	table.Render()
	return nil
}

// WriteCommits renders a commit history as a table or JSON.
func WriteCommits(w io.Writer, format string, commits []gh.CommitSummary) error {
	if format == OutputJSON {
		return writeJSON(w, commits)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"SHA", "Author", "Date", "Message"})
	table.SetAutoWrapText(false)
	for _, c := range commits {
		table.Append([]string{shortSHA(c.SHA), author(c), formatTime(c.AuthorDate), firstLine(c.Message)})
	}
	table.Render()
	return nil
}

// WriteCommit renders a commit header followed by its files.
func WriteCommit(w io.Writer, format string, detail gh.CommitDetail) error {
	if format == OutputJSON {
		return writeJSON(w, detail)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "commit %s\n", detail.SHA)
	fmt.Fprintf(&builder, "Author: %s\n", author(detail.CommitSummary))
	if !detail.AuthorDate.IsZero() {
		fmt.Fprintf(&builder, "Date:   %s\n", formatTime(detail.AuthorDate))
	}
	if detail.HTMLURL != "" {
		fmt.Fprintf(&builder, "URL:    %s\n", detail.HTMLURL)
	}
	builder.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(detail.Message, "\n"), "\n") {
		builder.WriteString("    ")
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	if _, err := io.WriteString(w, builder.String()); err != nil {
		return err
	}

	if len(detail.Files) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Status", "+", "-"})
	for _, f := range detail.Files {
		table.Append([]string{f.Filename, f.Status, strconv.Itoa(f.Additions), strconv.Itoa(f.Deletions)})
	}
	table.Render()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(line)
}

func author(c gh.CommitSummary) string {
	switch {
	case c.AuthorName != "" && c.AuthorLogin != "":
		return fmt.Sprintf("%s (@%s)", c.AuthorName, c.AuthorLogin)
	case c.AuthorLogin != "":
		return "@" + c.AuthorLogin
	default:
		return c.AuthorName
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
