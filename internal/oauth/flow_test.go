package oauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/oauth2"

	"github.com/easygit/easy-git/internal/failure"
	"github.com/easygit/easy-git/internal/oauth"
)

type browserVisit struct {
	status      int
	contentType string
	body        string
	err         error
}

// fakeBrowser follows the authorize URL the way GitHub would after the user
// approves, by requesting the redirect URI with the given query.
type fakeBrowser struct {
	mu       sync.Mutex
	opened   []string
	query    func(state string) string
	launchFn func() error
	visits   chan browserVisit
}

func newFakeBrowser(query func(state string) string) *fakeBrowser {
	return &fakeBrowser{query: query, visits: make(chan browserVisit, 4)}
}

func (b *fakeBrowser) Open(authURL string) error {
	b.mu.Lock()
	b.opened = append(b.opened, authURL)
	b.mu.Unlock()

	parsed, err := url.Parse(authURL)
	if err != nil {
		return err
	}
	params := parsed.Query()
	target := params.Get("redirect_uri") + "?" + b.query(params.Get("state"))

	go func() {
		resp, err := http.Get(target)
		if err != nil {
			b.visits <- browserVisit{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		b.visits <- browserVisit{status: resp.StatusCode, contentType: resp.Header.Get("Content-Type"), body: string(body)}
	}()

	if b.launchFn != nil {
		return b.launchFn()
	}
	return nil
}

func (b *fakeBrowser) authURLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.opened...)
}

type tokenRequest struct {
	accept string
	form   url.Values
}

var _ = Describe("Flow", func() {
	var (
		ctx         context.Context
		cancel      context.CancelFunc
		tokenServer *httptest.Server
		requests    chan tokenRequest
		credentials oauth.MapSource
		flow        *oauth.Flow
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		DeferCleanup(func() { cancel() })

		requests = make(chan tokenRequest, 4)
		tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.ParseForm()).To(Succeed())
			requests <- tokenRequest{accept: r.Header.Get("Accept"), form: r.PostForm}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"access_token": "gho_exampletoken",
				"token_type":   "bearer",
				"scope":        "repo",
			})
		}))
		DeferCleanup(tokenServer.Close)

		credentials = oauth.MapSource{
			oauth.EnvClientID:     "client-123",
			oauth.EnvClientSecret: "secret-456",
		}
		flow = &oauth.Flow{
			Port:   -1,
			Source: credentials,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://github.com/login/oauth/authorize",
				TokenURL: tokenServer.URL + "/login/oauth/access_token",
			},
		}
	})

	It("exchanges the code from a valid callback for a token", func() {
		browser := newFakeBrowser(func(state string) string { return "code=c0de&state=" + state })
		flow.OpenBrowser = browser.Open

		var phases []oauth.Phase
		flow.OnPhase = func(p oauth.Phase) { phases = append(phases, p) }

		result, err := flow.Login(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.AccessToken).To(Equal("gho_exampletoken"))
		Expect(result.TokenType).To(Equal("bearer"))
		Expect(result.Scope).To(Equal("repo"))

		Expect(browser.authURLs()).To(HaveLen(1))
		authURL, err := url.Parse(browser.authURLs()[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(authURL.Host).To(Equal("github.com"))
		Expect(authURL.Path).To(Equal("/login/oauth/authorize"))
		params := authURL.Query()
		Expect(params.Get("client_id")).To(Equal("client-123"))
		Expect(params.Get("scope")).To(Equal("repo"))
		Expect(params.Get("response_type")).To(Equal("code"))
		Expect(params.Get("state")).To(MatchRegexp(`^[0-9a-f]{32}$`))
		Expect(params.Get("redirect_uri")).To(MatchRegexp(`^http://127\.0\.0\.1:\d+/callback$`))

		var req tokenRequest
		Eventually(requests).Should(Receive(&req))
		Expect(req.accept).To(Equal("application/json"))
		Expect(req.form.Get("client_id")).To(Equal("client-123"))
		Expect(req.form.Get("client_secret")).To(Equal("secret-456"))
		Expect(req.form.Get("code")).To(Equal("c0de"))
		Expect(req.form.Get("redirect_uri")).To(Equal(params.Get("redirect_uri")))

		var visit browserVisit
		Eventually(browser.visits).Should(Receive(&visit))
		Expect(visit.err).NotTo(HaveOccurred())
		Expect(visit.status).To(Equal(http.StatusOK))
		Expect(visit.contentType).To(Equal("text/html; charset=utf-8"))
		Expect(visit.body).To(ContainSubstring("Authentication complete"))

		Expect(phases).To(Equal([]oauth.Phase{
			oauth.PhaseIdle,
			oauth.PhaseAwaitingCredentials,
			oauth.PhaseListenerBound,
			oauth.PhaseBrowserLaunched,
			oauth.PhaseAwaitingCallback,
			oauth.PhaseCallbackReceived,
			oauth.PhaseValidated,
			oauth.PhaseTerminal,
		}))
	})

	It("releases the callback port once the login finishes", func() {
		browser := newFakeBrowser(func(state string) string { return "code=c0de&state=" + state })
		flow.OpenBrowser = browser.Open

		_, err := flow.Login(ctx)
		Expect(err).NotTo(HaveOccurred())

		authURL, err := url.Parse(browser.authURLs()[0])
		Expect(err).NotTo(HaveOccurred())
		redirect, err := url.Parse(authURL.Query().Get("redirect_uri"))
		Expect(err).NotTo(HaveOccurred())

		ln, err := net.Listen("tcp", redirect.Host)
		Expect(err).NotTo(HaveOccurred())
		Expect(ln.Close()).To(Succeed())
	})

	It("rejects a callback whose state does not match and never exchanges", func() {
		browser := newFakeBrowser(func(string) string { return "code=c0de&state=forged" })
		flow.OpenBrowser = browser.Open

		_, err := flow.Login(ctx)
		Expect(err).To(MatchError(ContainSubstring("state mismatch")))
		Expect(failure.KindOf(err)).To(Equal(failure.KindProtocol))
		Consistently(requests, 200*time.Millisecond).ShouldNot(Receive())

		var visit browserVisit
		Eventually(browser.visits).Should(Receive(&visit))
		Expect(visit.status).To(Equal(http.StatusOK))
	})

	It("treats a callback without a code as malformed", func() {
		browser := newFakeBrowser(func(state string) string { return "state=" + state })
		flow.OpenBrowser = browser.Open

		_, err := flow.Login(ctx)
		Expect(err).To(MatchError(ContainSubstring("malformed")))
		Expect(failure.KindOf(err)).To(Equal(failure.KindProtocol))
		Expect(requests).NotTo(Receive())
	})

	It("reports a denied authorization with GitHub's description", func() {
		browser := newFakeBrowser(func(state string) string {
			return "error=access_denied&error_description=The+user+has+denied+your+application+access.&state=" + state
		})
		flow.OpenBrowser = browser.Open

		_, err := flow.Login(ctx)
		Expect(err).To(MatchError(ContainSubstring("The user has denied your application access.")))
		Expect(failure.KindOf(err)).To(Equal(failure.KindProtocol))
	})

	It("continues when the browser cannot be opened", func() {
		browser := newFakeBrowser(func(state string) string { return "code=c0de&state=" + state })
		browser.launchFn = func() error { return errors.New("no display") }
		flow.OpenBrowser = browser.Open

		var prompted string
		flow.Prompt = func(u string) { prompted = u }

		result, err := flow.Login(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.AccessToken).To(Equal("gho_exampletoken"))
		Expect(prompted).To(Equal(browser.authURLs()[0]))
	})

	It("fails with a configuration error before binding when credentials are missing", func() {
		flow.Source = oauth.MapSource{}
		opened := false
		flow.OpenBrowser = func(string) error { opened = true; return nil }

		_, err := flow.Login(ctx)
		Expect(err).To(MatchError(ContainSubstring(oauth.EnvClientID)))
		Expect(failure.KindOf(err)).To(Equal(failure.KindConfiguration))
		Expect(opened).To(BeFalse())
	})

	It("accepts the legacy credential names", func() {
		flow.Source = oauth.MapSource{
			oauth.LegacyEnvClientID:     "legacy-id",
			oauth.LegacyEnvClientSecret: "legacy-secret",
		}
		browser := newFakeBrowser(func(state string) string { return "code=c0de&state=" + state })
		flow.OpenBrowser = browser.Open

		_, err := flow.Login(ctx)
		Expect(err).NotTo(HaveOccurred())

		var req tokenRequest
		Eventually(requests).Should(Receive(&req))
		Expect(req.form.Get("client_id")).To(Equal("legacy-id"))
		Expect(req.form.Get("client_secret")).To(Equal("legacy-secret"))
	})

	It("names the port when the callback listener cannot bind", func() {
		busy, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(busy.Close)
		port := busy.Addr().(*net.TCPAddr).Port

		flow.Port = port
		flow.OpenBrowser = func(string) error {
			Fail("browser must not open when the listener cannot bind")
			return nil
		}

		_, err = flow.Login(ctx)
		Expect(err).To(HaveOccurred())
		Expect(failure.KindOf(err)).To(Equal(failure.KindNetwork))
		Expect(err.Error()).To(ContainSubstring(strconv.Itoa(port)))
	})

	It("uses a fresh state for every attempt", func() {
		browser := newFakeBrowser(func(state string) string { return "code=c0de&state=" + state })
		flow.OpenBrowser = browser.Open

		_, err := flow.Login(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = flow.Login(ctx)
		Expect(err).NotTo(HaveOccurred())

		urls := browser.authURLs()
		Expect(urls).To(HaveLen(2))
		first, _ := url.Parse(urls[0])
		second, _ := url.Parse(urls[1])
		Expect(first.Query().Get("state")).NotTo(Equal(second.Query().Get("state")))
	})

	It("stops waiting when the context is cancelled", func() {
		flow.OpenBrowser = func(string) error { return nil }
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		_, err := flow.Login(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})
