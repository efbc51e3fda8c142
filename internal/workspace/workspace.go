// Package workspace manages the scratch directories that hold ephemeral
// clones. Each (owner, repo) pair maps to exactly one deterministic path.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/easygit/easy-git/internal/failure"
)

// AppDir namespaces workspaces inside the scratch root.
const AppDir = "easy-git"

// Manager creates and disposes workspace directories.
type Manager struct {
	// BaseDir is the scratch root. When empty, os.TempDir() is used.
	BaseDir string

	Log *slog.Logger
}

// NewManager returns a Manager rooted at baseDir.
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	return &Manager{BaseDir: baseDir, Log: logger}
}

// Path returns the workspace path for owner/repo without touching the
// filesystem.
func (m *Manager) Path(owner, repo string) (string, error) {
	if err := validateSegment("owner", owner); err != nil {
		return "", err
	}
	if err := validateSegment("repo", repo); err != nil {
		return "", err
	}
	base := m.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, AppDir, fmt.Sprintf("%s_%s_revert", owner, repo)), nil
}

// Prepare returns an empty directory for owner/repo. Anything left at that
// path by an earlier run is removed first.
func (m *Manager) Prepare(owner, repo string) (string, error) {
	path, err := m.Path(owner, repo)
	if err != nil {
		return "", err
	}

	if _, err := os.Lstat(path); err == nil {
		if m.Log != nil {
			m.Log.Debug("removing stale workspace", "path", path)
		}
		if err := os.RemoveAll(path); err != nil {
			return "", failure.Wrap(failure.KindFilesystem, err, "remove stale workspace "+path)
		}
	} else if !os.IsNotExist(err) {
		return "", failure.Wrap(failure.KindFilesystem, err, "stat workspace "+path)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", failure.Wrap(failure.KindFilesystem, err, "create workspace "+path)
	}
	return path, nil
}

// Dispose removes path recursively. Failures are logged and otherwise
// ignored; the next Prepare for the same pair cleans up whatever is left.
func (m *Manager) Dispose(path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil && m.Log != nil {
		m.Log.Warn("failed to remove workspace", "path", path, "error", err)
	}
}

func validateSegment(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return failure.New(failure.KindConfiguration, "%s is required", field)
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) {
		return failure.New(failure.KindConfiguration, "invalid %s %q", field, value)
	}
	return nil
}
