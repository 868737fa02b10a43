package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
	"github.com/SYNC-360/kravet-scraper/internal/browser"
)

// ErrLoginPageUnavailable is returned when the browser cannot load the login
// page at all. It is the only fatal login outcome.
var ErrLoginPageUnavailable = errors.New("login page unavailable")

// State describes how the crawl session was established.
type State string

const (
	StateAuthenticated   State = "authenticated"
	StateDegradedBrowser State = "degraded-browser"
	StateUnauthenticated State = "unauthenticated"
)

// Authenticated reports whether either login tier confirmed a session.
func (s State) Authenticated() bool {
	return s == StateAuthenticated || s == StateDegradedBrowser
}

type Credentials struct {
	Identity string
	Secret   string
}

// Handle is the result of Establish.
type Handle struct {
	State         State
	Cookies       []*http.Cookie
	EstablishedAt time.Time
}

// BrowserLogin is the browser side of the login: the fallback form submission
// and the target for cookies captured over plain HTTP.
type BrowserLogin interface {
	SubmitLogin(ctx context.Context, form browser.LoginForm) (bool, error)
	AddCookies(origin string, cookies []*http.Cookie) error
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	Settle    time.Duration
	// Transport replaces the HTTP transport used by the protocol-level login.
	Transport http.RoundTripper
}

type Manager struct {
	site    brand.Site
	browser BrowserLogin
	opts    Options
	formKey *regexp.Regexp
	logger  *slog.Logger
}

func NewManager(site brand.Site, b BrowserLogin, opts Options, logger *slog.Logger) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Manager{
		site:    site,
		browser: b,
		opts:    opts,
		formKey: regexp.MustCompile(`name="` + regexp.QuoteMeta(site.FormKeyField) + `"\s+value="([^"]+)"`),
		logger:  logger.With("component", "session"),
	}
}

// Establish logs in over HTTP first and hands the resulting cookies to the
// browser. When that cannot be confirmed it drives the login form in the
// browser instead. A session that neither tier confirms is returned as
// StateUnauthenticated, not as an error.
func (m *Manager) Establish(ctx context.Context, creds Credentials) (*Handle, error) {
	if creds.Identity == "" || creds.Secret == "" {
		m.logger.Warn("no credentials configured, crawling unauthenticated")
		return m.handle(StateUnauthenticated, nil), nil
	}

	cookies, ok, err := m.loginHTTP(ctx, creds)
	switch {
	case err != nil:
		m.logger.Warn("http login failed, falling back to browser", "error", err)
	case !ok:
		m.logger.Warn("http login not confirmed, falling back to browser")
	default:
		if err := m.browser.AddCookies(m.site.Origin, cookies); err != nil {
			m.logger.Warn("failed to hand session to browser, falling back to browser login", "error", err)
			break
		}
		m.logger.Info("http login successful", "cookies", len(cookies))
		return m.handle(StateAuthenticated, cookies), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ok, err = m.browser.SubmitLogin(ctx, browser.LoginForm{
		PageURL:          m.site.LoginPageURL,
		IdentitySelector: m.site.IdentitySelector,
		SecretSelector:   m.site.SecretSelector,
		SubmitSelector:   m.site.SubmitSelector,
		AuthMarker:       m.site.AuthMarker,
		Identity:         creds.Identity,
		Secret:           creds.Secret,
		Settle:           m.opts.Settle,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginPageUnavailable, err)
	}

	if !ok {
		m.logger.Warn("browser login not confirmed, crawling unauthenticated")
		return m.handle(StateUnauthenticated, nil), nil
	}

	m.logger.Info("browser login successful")
	return m.handle(StateDegradedBrowser, nil), nil
}

func (m *Manager) handle(state State, cookies []*http.Cookie) *Handle {
	return &Handle{
		State:         state,
		Cookies:       cookies,
		EstablishedAt: time.Now(),
	}
}

// loginHTTP fetches the login page for its anti-forgery token and posts the
// credentials without following redirects. The login counts as confirmed
// when the post sets the session cookie or redirects away from the login
// page.
func (m *Manager) loginHTTP(ctx context.Context, creds Credentials) ([]*http.Cookie, bool, error) {
	c := colly.NewCollector(colly.AllowURLRevisit())
	if m.opts.UserAgent != "" {
		c.UserAgent = m.opts.UserAgent
	}
	c.SetRequestTimeout(m.opts.Timeout)
	c.ParseHTTPErrorResponse = true
	if m.opts.Transport != nil {
		c.WithTransport(m.opts.Transport)
	}
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	})

	var (
		formKey string
		last    *colly.Response
	)
	c.OnResponse(func(r *colly.Response) {
		last = r
		if formKey == "" {
			if match := m.formKey.FindSubmatch(r.Body); match != nil {
				formKey = string(match[1])
			}
		}
	})
	c.OnHTML(`input[name="`+m.site.FormKeyField+`"]`, func(e *colly.HTMLElement) {
		if v := e.Attr("value"); v != "" {
			formKey = v
		}
	})

	if err := c.Visit(m.site.LoginPageURL); err != nil {
		return nil, false, fmt.Errorf("failed to fetch login page: %w", err)
	}
	if last == nil || last.StatusCode >= http.StatusBadRequest {
		return nil, false, fmt.Errorf("login page returned status %d", statusOf(last))
	}
	if formKey == "" {
		m.logger.Debug("no anti-forgery token on login page")
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	fields := map[string]string{
		m.site.FormKeyField:  formKey,
		m.site.IdentityField: creds.Identity,
		m.site.SecretField:   creds.Secret,
	}
	for k, v := range m.site.ExtraFields {
		fields[k] = v
	}

	last = nil
	if err := c.Post(m.site.LoginPostURL, fields); err != nil {
		return nil, false, fmt.Errorf("failed to submit login: %w", err)
	}
	if last == nil {
		return nil, false, fmt.Errorf("login post returned no response")
	}

	confirmed := m.setsSessionCookie(last) || m.redirectsAway(last)
	m.logger.Debug("http login response", "status", last.StatusCode, "confirmed", confirmed)

	return c.Cookies(m.site.Origin), confirmed, nil
}

func (m *Manager) setsSessionCookie(r *colly.Response) bool {
	if r.Headers == nil {
		return false
	}
	resp := &http.Response{Header: *r.Headers}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == m.site.SessionCookie && cookie.Value != "" {
			return true
		}
	}
	return false
}

func (m *Manager) redirectsAway(r *colly.Response) bool {
	if r.StatusCode != http.StatusFound && r.StatusCode != http.StatusSeeOther {
		return false
	}
	if r.Headers == nil {
		return true
	}

	location := r.Headers.Get("Location")
	if location == "" {
		return true
	}
	target, err := url.Parse(location)
	if err != nil {
		return true
	}
	login, err := url.Parse(m.site.LoginPageURL)
	if err != nil {
		return true
	}

	return strings.TrimSuffix(target.Path, "/") != strings.TrimSuffix(login.Path, "/")
}

func statusOf(r *colly.Response) int {
	if r == nil {
		return 0
	}
	return r.StatusCode
}
