// Package oauth signs a user in with GitHub's web authorization flow, using
// a loopback listener to receive the redirect.
package oauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"

	"github.com/easygit/easy-git/internal/failure"
)

// DefaultPort is the fixed loopback port registered as the OAuth app's
// callback.
const DefaultPort = 17865

const callbackPath = "/callback"

// Phase is a step of a login attempt.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseAwaitingCredentials Phase = "awaiting_credentials"
	PhaseListenerBound       Phase = "listener_bound"
	PhaseBrowserLaunched     Phase = "browser_launched"
	PhaseAwaitingCallback    Phase = "awaiting_callback"
	PhaseCallbackReceived    Phase = "callback_received"
	PhaseValidated           Phase = "validated"
	PhaseRejected            Phase = "rejected"
	PhaseTerminal            Phase = "terminal"
)

// Flow runs the loopback authorization-code login.
type Flow struct {
	// Host is the loopback address to bind. Defaults to 127.0.0.1.
	Host string
	// Port is the callback port. Zero means DefaultPort; use -1 to let the
	// system choose.
	Port int

	Source   Source
	Endpoint oauth2.Endpoint
	Scopes   []string

	// OpenBrowser opens the authorize URL. Defaults to the system browser.
	OpenBrowser func(url string) error
	// Prompt, when set, receives the authorize URL so it can be shown to the
	// user for manual navigation.
	Prompt func(url string)

	HTTPClient *http.Client
	Log        *slog.Logger

	// OnPhase observes phase transitions.
	OnPhase func(Phase)
}

// Login runs one complete login and returns the access token. Every attempt
// uses a fresh state value and releases the listener before returning.
func (f *Flow) Login(ctx context.Context) (result TokenResult, err error) {
	logger := f.logger()
	f.enter(logger, PhaseIdle)
	defer func() {
		if err != nil {
			logger.Warn("oauth login failed", "error", err)
		}
		f.enter(logger, PhaseTerminal)
	}()

	f.enter(logger, PhaseAwaitingCredentials)
	creds, err := LoadCredentials(f.Source)
	if err != nil {
		return TokenResult{}, err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(f.host(), strconv.Itoa(f.port())))
	if err != nil {
		return TokenResult{}, failure.Wrap(failure.KindNetwork, err, fmt.Sprintf("bind oauth callback listener on port %d", f.port()))
	}
	defer ln.Close()

	port := f.port()
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}
	f.enter(logger, PhaseListenerBound, "port", port)

	state, err := NewState()
	if err != nil {
		return TokenResult{}, err
	}
	session := Session{
		State:        state,
		RedirectURI:  fmt.Sprintf("http://%s%s", net.JoinHostPort(f.host(), strconv.Itoa(port)), callbackPath),
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
	}

	authURL := session.AuthCodeURL(f.endpoint(), f.scopes())
	if f.Prompt != nil {
		f.Prompt(authURL)
	}
	if err := f.openBrowser(authURL); err != nil {
		logger.Warn("could not open browser, continue manually", "error", err)
	}
	f.enter(logger, PhaseBrowserLaunched)

	f.enter(logger, PhaseAwaitingCallback)
	cb, err := AwaitCallback(ctx, ln)
	if err != nil {
		f.enter(logger, PhaseRejected)
		return TokenResult{}, err
	}
	f.enter(logger, PhaseCallbackReceived)

	if err := session.Validate(cb); err != nil {
		f.enter(logger, PhaseRejected)
		return TokenResult{}, err
	}
	f.enter(logger, PhaseValidated)

	exchanger := &Exchanger{Endpoint: f.endpoint(), HTTPClient: f.HTTPClient}
	return exchanger.Exchange(ctx, cb.Code, session.ClientID, session.ClientSecret, session.RedirectURI)
}

func (f *Flow) enter(logger *slog.Logger, phase Phase, attrs ...any) {
	logger.Debug("oauth phase", append([]any{"phase", string(phase)}, attrs...)...)
	if f.OnPhase != nil {
		f.OnPhase(phase)
	}
}

func (f *Flow) host() string {
	if f.Host == "" {
		return "127.0.0.1"
	}
	return f.Host
}

func (f *Flow) port() int {
	switch {
	case f.Port == 0:
		return DefaultPort
	case f.Port < 0:
		return 0
	default:
		return f.Port
	}
}

func (f *Flow) endpoint() oauth2.Endpoint {
	if f.Endpoint.AuthURL == "" && f.Endpoint.TokenURL == "" {
		return oauth2github.Endpoint
	}
	return f.Endpoint
}

func (f *Flow) scopes() []string {
	if len(f.Scopes) == 0 {
		return []string{"repo"}
	}
	return f.Scopes
}

func (f *Flow) openBrowser(url string) error {
	if f.OpenBrowser != nil {
		return f.OpenBrowser(url)
	}
	return openSystemBrowser(url)
}

func (f *Flow) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openSystemBrowser keeps the launcher's output off stdout, which carries
// the token.
func openSystemBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}
