package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/listingdl/internal/config"
)

// maxRedirects bounds redirect chains.
const maxRedirects = 10

// Client fetches listing pages and images.
type Client struct {
	http         *http.Client
	userAgent    string
	delay        time.Duration
	maxBodySize  int64
	maxImageSize int64
	proxyAddress string
	timeout      time.Duration
	sites        *config.File
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithDelay sets the pause applied by Wait.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithMaxBodySize limits how much of a listing page is read.
// Larger pages are truncated.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithMaxImageSize limits image bodies. Larger images are rejected.
func WithMaxImageSize(size int64) Option {
	return func(c *Client) {
		c.maxImageSize = size
	}
}

// WithProxy routes every request through the SOCKS5 proxy at address.
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithSiteConfigs applies per-host cookies, headers and User-Agent overrides.
func WithSiteConfigs(sites *config.File) Option {
	return func(c *Client) {
		c.sites = sites
	}
}

// WithHTTPClient replaces the underlying client. Site settings are still
// injected through its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Client. Without options it uses the package defaults
// from config and connects directly.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent:    config.DefaultUserAgent,
		delay:        config.DefaultDelay,
		maxBodySize:  config.DefaultMaxBodySize,
		maxImageSize: config.DefaultMaxImageSize,
		timeout:      config.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		hc, err := c.newHTTPClient()
		if err != nil {
			return nil, err
		}
		c.http = hc
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.http.Transport = &siteTransport{
		base:      base,
		sites:     c.sites,
		userAgent: c.userAgent,
	}

	return c, nil
}

func (c *Client) newHTTPClient() (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}
	transport = transport.Clone()

	if c.proxyAddress != "" {
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer does not support contexts")
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer.DialContext
	}

	// Portal sessions often set cookies on the first page that the
	// image CDN then expects.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// Delay returns the configured politeness delay.
func (c *Client) Delay() time.Duration {
	return c.delay
}

// Wait pauses for the politeness delay. It returns early with the context
// error when ctx is canceled.
func (c *Client) Wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(c.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Page is a downloaded listing page.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Relative image URLs resolve against it.
	FinalURL string

	StatusCode  int
	ContentType string
	Body        []byte

	// Truncated is true when the body hit the size limit.
	Truncated bool
}

// FetchPage downloads a listing page. Non-2xx responses are errors.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	resp, err := c.get(ctx, pageURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, truncated, err := readLimited(resp.Body, c.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	return &Page{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}

// Download is a downloaded image body.
type Download struct {
	URL         string
	ContentType string
	Data        []byte
}

// FetchImage downloads an image. Non-2xx responses and bodies over the
// image size limit are errors.
func (c *Client) FetchImage(ctx context.Context, imageURL string) (*Download, error) {
	resp, err := c.get(ctx, imageURL, "image/webp,image/jpeg,image/png,*/*;q=0.5")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if c.maxImageSize > 0 && resp.ContentLength > c.maxImageSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrBodyTooLarge, imageURL, resp.ContentLength)
	}

	data, truncated, err := readLimited(resp.Body, c.maxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", imageURL, err)
	}
	if truncated {
		return nil, fmt.Errorf("%w: %s", ErrBodyTooLarge, imageURL)
	}

	return &Download{
		URL:         imageURL,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (c *Client) get(ctx context.Context, target, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, target, resp.Status)
	}
	return resp, nil
}

// readLimited reads at most limit bytes and reports whether more were
// available. A limit of zero or less reads everything.
func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		return data, false, err
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// siteTransport injects the User-Agent and the per-host cookie and headers
// into every request, including redirects.
type siteTransport struct {
	base      http.RoundTripper
	sites     *config.File
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	ua := t.userAgent
	if t.sites != nil {
		site := t.sites.GetSiteConfig(req.URL.Hostname())

		if site.UserAgent != "" {
			ua = site.UserAgent
		}

		if site.Cookie != "" {
			if existing := clone.Header.Get("Cookie"); existing != "" {
				clone.Header.Set("Cookie", existing+"; "+site.Cookie)
			} else {
				clone.Header.Set("Cookie", site.Cookie)
			}
		}

		for key, value := range site.Headers {
			clone.Header.Set(key, value)
		}
	}
	if ua != "" {
		clone.Header.Set("User-Agent", ua)
	}

	return t.base.RoundTrip(clone)
}

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}
