package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Belphemur/HlsGrab/internal/config"
)

// DefaultTimeout bounds a single HTTP request, body included.
const DefaultTimeout = 60 * time.Second

// NewHTTPClient builds the HTTP client shared by the playlist and segment
// fetchers: per-request timeout, optional proxy, transparent response
// decoding and a default User-Agent.
func NewHTTPClient(cfg *config.Config) *http.Client {
	logger := config.GetLogger()

	timeout := ParseDuration(cfg.ClientTimeout, DefaultTimeout, "client_timeout")

	// Clone DefaultTransport to keep its dial/TLS timeouts and HTTP/2 support
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Concurrency > baseTransport.MaxIdleConnsPerHost {
		baseTransport.MaxIdleConnsPerHost = cfg.Concurrency
	}

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			userAgent: userAgent,
			base:      newDecodingTransport(baseTransport),
		},
	}
}

// ParseDuration parses a Go duration string, falling back to def (with a
// warning naming key) when the value is empty or invalid.
func ParseDuration(value string, def time.Duration, key string) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str(key, value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}

// userAgentTransport sets the User-Agent header unless the caller already did.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// StatusError reports a response whose status code is outside 2xx.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// CheckStatus returns a *StatusError for any non-2xx response.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
