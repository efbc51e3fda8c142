package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/easygit/easy-git/internal/failure"
	"github.com/easygit/easy-git/internal/oauth"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultGitBinary = "git"

	envPrefix = "EASY_GIT_"
)

// Config captures runtime options sourced from the config file, the
// environment and command-line flags.
type Config struct {
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	CallbackPort    int    `yaml:"callback_port"`
	ScratchDir      string `yaml:"scratch_dir"`
	GitBinary       string `yaml:"git_binary"`
	GitHubBaseURL   string `yaml:"github_base_url"`
	GitHubUploadURL string `yaml:"github_upload_url"`
	DryRun          bool   `yaml:"dry_run"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:     defaultLogLevel,
		LogFormat:    defaultLogFormat,
		CallbackPort: oauth.DefaultPort,
		GitBinary:    defaultGitBinary,
	}
}

// DefaultConfigPath returns ~/.config/easy-git/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", failure.Wrap(failure.KindConfiguration, err, "resolve home directory")
	}
	return filepath.Join(home, ".config", "easy-git", "config.yaml"), nil
}

// LoadConfig layers the defaults, the YAML file at path and the EASY_GIT_*
// environment variables, then validates the result. An empty path means the
// default location, which may be absent; an explicit path must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		if p, err := DefaultConfigPath(); err == nil {
			path = p
		}
	}

	if path != "" {
		if err := cfg.mergeFile(path, explicit); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return failure.Wrap(failure.KindConfiguration, err, "open config file")
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return failure.Wrap(failure.KindConfiguration, err, fmt.Sprintf("parse config file %s", path))
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v, ok := envValue("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := envValue("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := envValue("SCRATCH_DIR"); ok {
		c.ScratchDir = v
	}
	if v, ok := envValue("GIT_BINARY"); ok {
		c.GitBinary = v
	}
	if v, ok := envValue("GITHUB_BASE_URL"); ok {
		c.GitHubBaseURL = v
	}
	if v, ok := envValue("GITHUB_UPLOAD_URL"); ok {
		c.GitHubUploadURL = v
	}

	if v, ok := envValue("CALLBACK_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return failure.Wrap(failure.KindConfiguration, err, "parse "+envPrefix+"CALLBACK_PORT")
		}
		c.CallbackPort = port
	}

	if v, ok := envValue("DRY_RUN"); ok {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			return failure.Wrap(failure.KindConfiguration, err, "parse "+envPrefix+"DRY_RUN")
		}
		c.DryRun = dryRun
	}

	return nil
}

func envValue(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	return v, v != ""
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	c.LogLevel = normalizeOption(c.LogLevel, defaultLogLevel)
	c.LogFormat = normalizeOption(c.LogFormat, defaultLogFormat)
	c.GitBinary = strings.TrimSpace(c.GitBinary)
	c.GitHubBaseURL = strings.TrimSpace(c.GitHubBaseURL)
	c.GitHubUploadURL = strings.TrimSpace(c.GitHubUploadURL)

	if c.GitBinary == "" {
		c.GitBinary = defaultGitBinary
	}
	if c.CallbackPort == 0 {
		c.CallbackPort = oauth.DefaultPort
	}

	if _, ok := logLevels[c.LogLevel]; !ok {
		return failure.New(failure.KindConfiguration, "unsupported log level %q", c.LogLevel)
	}
	if _, ok := logFormats[c.LogFormat]; !ok {
		return failure.New(failure.KindConfiguration, "unsupported log format %q", c.LogFormat)
	}
	if c.CallbackPort < 1 || c.CallbackPort > 65535 {
		return failure.New(failure.KindConfiguration, "callback port %d is outside 1..65535", c.CallbackPort)
	}
	if c.GitHubBaseURL == "" && c.GitHubUploadURL != "" {
		return failure.New(failure.KindConfiguration, "github_upload_url requires github_base_url")
	}

	return nil
}
