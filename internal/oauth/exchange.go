package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/easygit/easy-git/internal/failure"
)

// TokenResult is the result of a successful code exchange.
type TokenResult struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// Exchanger trades an authorization code for an access token.
type Exchanger struct {
	Endpoint   oauth2.Endpoint
	HTTPClient *http.Client
}

// Exchange posts the code to the token endpoint as a form, with client
// credentials in the body, and asks for a JSON response.
func (e *Exchanger) Exchange(ctx context.Context, code, clientID, clientSecret, redirectURI string) (TokenResult, error) {
	endpoint := e.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	conf := oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURI,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client())
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return TokenResult{}, classifyExchangeError(err)
	}

	scope, _ := tok.Extra("scope").(string)
	return TokenResult{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       scope,
	}, nil
}

func (e *Exchanger) client() *http.Client {
	base := http.DefaultClient
	if e.HTTPClient != nil {
		base = e.HTTPClient
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Transport:     acceptJSON{base: transport},
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}
}

type acceptJSON struct {
	base http.RoundTripper
}

func (t acceptJSON) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(clone)
}

func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		body := strings.TrimSpace(string(retrieveErr.Body))
		if body == "" {
			body = retrieveErr.ErrorCode
		}
		return failure.New(failure.KindProtocol, "token exchange rejected (HTTP %d): %s", status, body)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return failure.Wrap(failure.KindNetwork, urlErr.Err, "token request failed")
	}

	return failure.Wrap(failure.KindProtocol, err, "response parsing failed")
}
