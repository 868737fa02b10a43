package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/playwright-community/playwright-go"
)

// LoginForm drives a credential form in the browser.
type LoginForm struct {
	PageURL          string
	IdentitySelector string
	SecretSelector   string
	SubmitSelector   string
	AuthMarker       string
	Identity         string
	Secret           string
	Settle           time.Duration
}

// SubmitLogin fills and submits the login form, waits, and reports whether
// the authenticated marker is present. Only a failure to load the login page
// is returned as an error; a form that cannot be filled or submitted yields
// (false, nil).
func (b *Browser) SubmitLogin(ctx context.Context, form LoginForm) (bool, error) {
	page, err := b.NewPage()
	if err != nil {
		return false, err
	}
	defer page.Close()

	if err := b.NavigateWithRetry(ctx, page, form.PageURL, b.opts.NavigationRetries); err != nil {
		return false, fmt.Errorf("failed to load login page: %w", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"fill identity", func() error { return page.Locator(form.IdentitySelector).First().Fill(form.Identity) }},
		{"fill secret", func() error { return page.Locator(form.SecretSelector).First().Fill(form.Secret) }},
		{"submit", func() error { return page.Locator(form.SubmitSelector).First().Click() }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			b.logger.Warn("browser login step failed", "step", step.name, "error", err)
			return false, nil
		}
	}

	if err := sleep(ctx, form.Settle); err != nil {
		return false, err
	}

	count, err := page.Locator(form.AuthMarker).Count()
	if err != nil {
		b.logger.Warn("failed to probe authenticated marker", "error", err)
		return false, nil
	}

	return count > 0, nil
}

// AddCookies installs cookies captured outside the browser into the shared
// context. Cookies without a domain are scoped to origin.
func (b *Browser) AddCookies(origin string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		pc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			HttpOnly: playwright.Bool(c.HttpOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Domain != "" {
			pc.Domain = playwright.String(c.Domain)
			path := c.Path
			if path == "" {
				path = "/"
			}
			pc.Path = playwright.String(path)
		} else {
			pc.URL = playwright.String(origin)
		}
		out = append(out, pc)
	}

	if err := b.context.AddCookies(out); err != nil {
		return fmt.Errorf("failed to add cookies: %w", err)
	}

	b.logger.Debug("cookies installed", "count", len(out))
	return nil
}
