package oauth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/easygit/easy-git/internal/failure"
)

const (
	maxRequestBytes = 8 << 10
	readTimeout     = 10 * time.Second
)

const confirmationPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>easy-git</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Authentication complete</h1>
<p>You can close this window and return to easy-git.</p>
</body>
</html>
`

// Callback carries the query parameters GitHub appends to the redirect.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// AwaitCallback accepts exactly one connection on ln, parses the request
// target of its first line and answers with a static confirmation page. The
// page is sent regardless of what the request contained. ln is closed as
// soon as the connection is accepted, or when ctx is cancelled.
func AwaitCallback(ctx context.Context, ln net.Listener) (Callback, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-done:
		}
	}()

	conn, err := ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Callback{}, ctxErr
		}
		return Callback{}, failure.Wrap(failure.KindNetwork, err, "accept oauth callback")
	}
	_ = ln.Close()
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	line, readErr := readRequestLine(conn)

	if err := writeConfirmation(conn); err != nil && readErr == nil {
		return Callback{}, failure.Wrap(failure.KindNetwork, err, "write oauth confirmation page")
	}
	if readErr != nil {
		return Callback{}, readErr
	}

	return ParseRequestLine(line)
}

// readRequestLine returns the first line of the request and consumes the
// headers that follow it, so the client is not reset when the connection
// closes with unread data.
func readRequestLine(conn net.Conn) (string, error) {
	reader := bufio.NewReader(io.LimitReader(conn, maxRequestBytes))

	line, err := reader.ReadString('\n')
	if strings.TrimSpace(line) == "" {
		return "", failure.New(failure.KindProtocol, "oauth callback malformed: empty request")
	}

	for err == nil {
		var header string
		header, err = reader.ReadString('\n')
		if strings.TrimSpace(header) == "" {
			break
		}
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func writeConfirmation(conn net.Conn) error {
	response := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		len(confirmationPage), confirmationPage)
	_, err := io.WriteString(conn, response)
	return err
}

// ParseRequestLine extracts the callback parameters from an HTTP request line
// such as "GET /callback?code=abc&state=xyz HTTP/1.1". Only the query is
// considered and values are percent-decoded, so a literal "+" in code or state
// is kept. error_description is the one form-encoded value GitHub sends, and
// its "+" becomes a space. Without both code and state the callback is
// malformed unless GitHub reported an error.
func ParseRequestLine(line string) (Callback, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Callback{}, failure.New(failure.KindProtocol, "oauth callback malformed: bad request line")
	}

	target := fields[1]
	_, query, found := strings.Cut(target, "?")
	if !found {
		return Callback{}, failure.New(failure.KindProtocol, "oauth callback malformed: missing query string")
	}

	var cb Callback
	for _, pair := range strings.Split(query, "&") {
		key, raw, _ := strings.Cut(pair, "=")
		if key == "error_description" {
			raw = strings.ReplaceAll(raw, "+", " ")
		}
		value, err := url.PathUnescape(raw)
		if err != nil {
			continue
		}
		switch key {
		case "code":
			cb.Code = value
		case "state":
			cb.State = value
		case "error":
			cb.Error = value
		case "error_description":
			cb.ErrorDescription = value
		}
	}

	if cb.Error != "" {
		return cb, nil
	}
	if cb.Code == "" || cb.State == "" {
		return cb, failure.New(failure.KindProtocol, "oauth callback malformed: code and state are required")
	}
	return cb, nil
}
