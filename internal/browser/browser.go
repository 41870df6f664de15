package browser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// heavyResourceTypes are aborted at the context level. Blocking
// images/fonts/styles is the single biggest speed win for infinite
// scroll; HTML and JS pass through untouched.
var heavyResourceTypes = map[string]bool{
	"image":      true,
	"media":      true,
	"font":       true,
	"stylesheet": true,
	"other":      true,
}

var heavyURLTokens = []string{
	".jpg", ".jpeg", ".png", ".webp", ".gif",
	".svg", ".woff", ".woff2", ".ttf", ".otf",
	"google-analytics", "doubleclick", "googletagmanager", "analytics.",
}

// consentSelectors is the fixed list of likely cookie-banner buttons;
// dismissal is best-effort and never fatal.
var consentSelectors = []string{
	`button:has-text("Accept all")`,
	`button:has-text("Accept")`,
	`button:has-text("I Agree")`,
	`button:has-text("Got it")`,
	`[data-testid="cookie-accept"]`,
	`text=Accept cookies`,
}

type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	BlockHeavy     bool
	CookiesFile    string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        60 * time.Second,
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		BlockHeavy:     true,
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--disable-background-networking",
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent: &opts.UserAgent,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	b := &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		logger:  slog.Default().With("component", "browser"),
	}

	// Context setup completes before any page is opened.
	if opts.BlockHeavy {
		if err := context.Route("**/*", abortHeavy); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to install request routing: %w", err)
		}
	}
	if opts.CookiesFile != "" {
		b.loadCookies(opts.CookiesFile)
	}

	return b, nil
}

// abortHeavy drops requests for heavy assets and analytics endpoints.
// Routing errors never crash the run.
func abortHeavy(route playwright.Route) {
	req := route.Request()
	if heavyResourceTypes[req.ResourceType()] {
		route.Abort()
		return
	}
	url := strings.ToLower(req.URL())
	for _, token := range heavyURLTokens {
		if strings.Contains(url, token) {
			route.Abort()
			return
		}
	}
	route.Continue()
}

// loadCookies imports session cookies from a JSON file, best-effort.
// Accepts either a bare cookie array or {"cookies": [...]}.
func (b *Browser) loadCookies(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	cookies, err := parseCookieFile(data)
	if err != nil {
		b.logger.Warn("could not parse cookies file", "path", path, "error", err)
		return
	}

	var imported []playwright.OptionalCookie
	for _, c := range cookies {
		if c.Name == "" || c.Value == "" {
			continue
		}
		cookie := playwright.OptionalCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: playwright.String(defaultString(c.Domain, ".depop.com")),
			Path:   playwright.String(defaultString(c.Path, "/")),
		}
		if c.Expires > 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		if c.Secure != nil {
			cookie.Secure = c.Secure
		}
		if c.HTTPOnly != nil {
			cookie.HttpOnly = c.HTTPOnly
		}
		imported = append(imported, cookie)
	}

	if len(imported) == 0 {
		return
	}
	if err := b.context.AddCookies(imported); err != nil {
		b.logger.Warn("failed to import cookies", "error", err)
		return
	}
	b.logger.Info("imported session cookies", "count", len(imported))
}

// parseCookieFile accepts either a bare cookie array or the
// {"cookies": [...]} shape browser extensions export.
func parseCookieFile(data []byte) ([]storedCookie, error) {
	var wrapper struct {
		Cookies []storedCookie `json:"cookies"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Cookies) > 0 {
		return wrapper.Cookies, nil
	}

	var cookies []storedCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}

type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	Secure   *bool   `json:"secure"`
	HTTPOnly *bool   `json:"httpOnly"`
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(DefaultOptions().Timeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(DefaultOptions().Timeout.Milliseconds()))

	return page, nil
}

func (b *Browser) Context() playwright.BrowserContext {
	return b.context
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

func (b *Browser) NavigateWithRetry(page playwright.Page, url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			b.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(60000),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		b.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// DismissCookieBanner tries a fixed list of likely consent buttons and
// falls back to Escape. Failure to dismiss is non-fatal.
func (b *Browser) DismissCookieBanner(page playwright.Page) {
	for _, selector := range consentSelectors {
		button := page.Locator(selector).First()
		count, err := button.Count()
		if err != nil || count == 0 {
			continue
		}
		if err := button.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(2000),
		}); err != nil {
			continue
		}
		b.logger.Debug("dismissed cookie banner", "selector", selector)
		return
	}
	page.Keyboard().Press("Escape")
}
