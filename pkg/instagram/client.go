package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igengage/pkg/account"
	"igengage/pkg/config"
	errs "igengage/pkg/errors"
	"igengage/pkg/logger"
	"igengage/pkg/proxy"
	"igengage/pkg/ratelimit"
)

// Client drives engagement actions through Instagram's web API using the
// per-account session blobs saved in the record store. It implements the
// automation Actor interface.
type Client struct {
	timeout   time.Duration
	userAgent string
	limiter   ratelimit.Limiter
	logger    logger.Logger
	baseURL   string
	proxies   *proxy.Pool
}

// NewClient creates an engagement client from the HTTP configuration
func NewClient(cfg *config.HTTPConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		limiter:   ratelimit.NewTokenBucket(cfg.RequestsPerMinute, time.Minute),
		logger:    log,
		baseURL:   BaseURL,
	}
}

// SetBaseURL overrides the API base URL (tests)
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// SetProxyPool registers a rotation pool. Accounts without a pinned proxy
// get a random pool proxy per session.
func (c *Client) SetProxyPool(pool *proxy.Pool) {
	c.proxies = pool
}

// session carries per-account request state
type session struct {
	httpClient *http.Client
	headers    map[string]string
	csrfToken  string
}

// newSession builds the per-account HTTP client and header set. The proxy
// endpoint and session cookies come from the account record.
func (c *Client) newSession(acct *account.Record) (*session, error) {
	transport := &http.Transport{}
	proxyAddr := acct.Proxy
	if proxyAddr == "" && c.proxies != nil && c.proxies.Len() > 0 {
		proxyAddr = c.proxies.Random()
	}
	if proxyAddr != "" {
		proxyURL, err := proxy.Parse(proxyAddr)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeUnknown, 0, "bad proxy for %s: %v", acct.Username, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	userAgent := acct.UserAgent
	if userAgent == "" {
		userAgent = c.userAgent
	}

	var cookies []string
	csrf := ""
	for _, cookie := range acct.SessionCookies {
		cookies = append(cookies, fmt.Sprintf("%s=%s", cookie.Name, cookie.Value))
		if cookie.Name == "csrftoken" {
			csrf = cookie.Value
		}
	}

	headers := map[string]string{
		"User-Agent":       userAgent,
		"Accept":           "*/*",
		"Accept-Language":  "en-US,en;q=0.9",
		"X-IG-App-ID":      webAppID,
		"X-Requested-With": "XMLHttpRequest",
		"Referer":          c.baseURL + "/",
	}
	if len(cookies) > 0 {
		headers["Cookie"] = strings.Join(cookies, "; ")
	}
	if csrf != "" {
		headers["X-CSRFToken"] = csrf
	}

	return &session{
		httpClient: &http.Client{
			Timeout:   c.timeout,
			Transport: transport,
		},
		headers:   headers,
		csrfToken: csrf,
	}, nil
}

// do performs one rate-limited request and maps failures to typed errors
func (c *Client) do(ctx context.Context, sess *session, method, rawURL string, form url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to build request: %v", err)
	}
	for key, value := range sess.headers {
		req.Header.Set(key, value)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": method,
		"url":    rawURL,
	})

	resp, err := sess.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method": method,
			"url":    rawURL,
			"error":  err.Error(),
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "failed to read response: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"url":      rawURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode != http.StatusOK {
		return data, statusError(resp.StatusCode, data)
	}
	if restriction := detectRestriction(data); restriction != nil {
		return data, restriction
	}

	return data, nil
}

// getJSON performs a GET and decodes the JSON response into target
func (c *Client) getJSON(ctx context.Context, sess *session, rawURL string, target interface{}) error {
	data, err := c.do(ctx, sess, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errs.New(errs.ErrorTypeParsing, 0, "failed to decode response: %v", err)
	}
	return nil
}

// statusError maps an HTTP status code to a typed error
func statusError(code int, body []byte) *errs.Error {
	switch {
	case code == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, code, "rate limited")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		if restriction := detectRestriction(body); restriction != nil {
			return restriction
		}
		return errs.New(errs.ErrorTypeAuth, code, "authentication rejected")
	case code == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, code, "not found")
	case errs.IsRetryableStatusCode(code):
		return errs.New(errs.ErrorTypeServerError, code, "server error")
	default:
		return errs.New(errs.ErrorTypeUnknown, code, "unexpected status")
	}
}
