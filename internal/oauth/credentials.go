package oauth

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/easygit/easy-git/internal/failure"
)

// Environment variables holding the OAuth app credentials.
const (
	EnvClientID           = "GITHUB_OAUTH_CLIENT_ID"
	EnvClientSecret       = "GITHUB_OAUTH_CLIENT_SECRET"
	LegacyEnvClientID     = "GITHUB_CLIENT_ID"
	LegacyEnvClientSecret = "GITHUB_CLIENT_SECRET"
)

// Source looks up named configuration values.
type Source interface {
	Lookup(key string) (string, bool)
}

// EnvSource reads the process environment.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource serves fixed values.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ChainSource consults each source in order and returns the first non-blank
// value.
type ChainSource []Source

func (c ChainSource) Lookup(key string) (string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// DotenvSource serves values read from .env files.
type DotenvSource struct {
	values map[string]string
}

// NewDotenvSource reads the given .env files. Files that do not exist are
// skipped; earlier files win over later ones.
func NewDotenvSource(paths ...string) (DotenvSource, error) {
	values := map[string]string{}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return DotenvSource{}, fmt.Errorf("stat %s: %w", path, err)
		}
		parsed, err := godotenv.Read(path)
		if err != nil {
			return DotenvSource{}, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range parsed {
			if _, exists := values[k]; !exists {
				values[k] = v
			}
		}
	}
	return DotenvSource{values: values}, nil
}

func (d DotenvSource) Lookup(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Credentials identify the OAuth app.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// LoadCredentials resolves the client id and secret from src, preferring the
// current variable names over the legacy ones. A missing value is a
// configuration failure naming the variable.
func LoadCredentials(src Source) (Credentials, error) {
	if src == nil {
		src = EnvSource{}
	}

	id := lookupEither(src, EnvClientID, LegacyEnvClientID)
	if id == "" {
		return Credentials{}, failure.New(failure.KindConfiguration, "%s is not set (legacy %s is also accepted)", EnvClientID, LegacyEnvClientID)
	}

	secret := lookupEither(src, EnvClientSecret, LegacyEnvClientSecret)
	if secret == "" {
		return Credentials{}, failure.New(failure.KindConfiguration, "%s is not set (legacy %s is also accepted)", EnvClientSecret, LegacyEnvClientSecret)
	}

	return Credentials{ClientID: id, ClientSecret: secret}, nil
}

func lookupEither(src Source, keys ...string) string {
	for _, key := range keys {
		if v, ok := src.Lookup(key); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
