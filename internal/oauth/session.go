package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/oauth2"

	"github.com/easygit/easy-git/internal/failure"
)

const stateBytes = 16

// Session holds the values of a single login attempt.
type Session struct {
	State        string
	RedirectURI  string
	ClientID     string
	ClientSecret string
}

// NewState returns 16 random bytes from crypto/rand, hex encoded.
func NewState() (string, error) {
	return newStateFrom(rand.Reader)
}

func newStateFrom(r io.Reader) (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthCodeURL builds the authorize URL the user is sent to.
func (s Session) AuthCodeURL(endpoint oauth2.Endpoint, scopes []string) string {
	conf := oauth2.Config{
		ClientID:    s.ClientID,
		Endpoint:    endpoint,
		RedirectURL: s.RedirectURI,
		Scopes:      scopes,
	}
	return conf.AuthCodeURL(s.State)
}

// Validate checks a callback against the session. The state must match
// exactly; a mismatch means the callback did not come from this login.
func (s Session) Validate(cb Callback) error {
	if cb.Error != "" {
		msg := cb.ErrorDescription
		if msg == "" {
			msg = cb.Error
		}
		return failure.New(failure.KindProtocol, "github denied the authorization request: %s", msg)
	}
	if cb.Code == "" || cb.State == "" {
		return failure.New(failure.KindProtocol, "oauth callback malformed: code and state are required")
	}
	if s.State == "" || subtle.ConstantTimeCompare([]byte(cb.State), []byte(s.State)) != 1 {
		return failure.New(failure.KindProtocol, "oauth state mismatch: possible request forgery, please retry login")
	}
	return nil
}
