// Package resolver finds the media playlist referenced by an episode page.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/client"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/PuerkitoBio/goquery"
)

// maxPageSize bounds the bytes read from an episode page.
const maxPageSize = 8 << 20

// attributeSelectors are scanned in order; the first .m3u8 reference wins.
var attributeSelectors = []struct {
	selector string
	attr     string
}{
	{"video source[src]", "src"},
	{"source[src]", "src"},
	{"video[src]", "src"},
	{"[data-src]", "data-src"},
	{"[data-url]", "data-url"},
	{"[data-playlist]", "data-playlist"},
	{"a[href]", "href"},
}

// inlinePlaylistRe matches playlist references inside scripts and text,
// either absolute or quoted relative paths.
var inlinePlaylistRe = regexp.MustCompile(`https?://[^\s"'<>\\]+?\.m3u8(?:\?[^\s"'<>\\]*)?|["']([^\s"'<>]+?\.m3u8(?:\?[^\s"'<>]*)?)["']`)

// Resolver downloads episode pages and extracts their playlist URL.
type Resolver struct {
	httpClient *http.Client
	retrier    *client.Retrier
}

// New creates a Resolver. retrier may be nil for a single attempt.
func New(httpClient *http.Client, retrier *client.Retrier) *Resolver {
	if retrier == nil {
		retrier = client.NewRetrier(client.RetryConfig{})
	}
	return &Resolver{httpClient: httpClient, retrier: retrier}
}

// Resolve fetches pageURL and returns the absolute URL of the first playlist
// it references. Fetch failures are *apperrors.FetchError; a page without any
// playlist reference is a *apperrors.ConstructionError.
func (r *Resolver) Resolve(ctx context.Context, pageURL string) (string, error) {
	logger := config.GetLogger()

	var playlistURL string
	err := r.retrier.Run(ctx, func() error {
		found, err := r.resolveOnce(ctx, pageURL)
		if err != nil {
			return err
		}
		playlistURL = found
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("url", pageURL).Msg("Failed to resolve playlist URL")
		return "", err
	}

	logger.Info().Str("page", pageURL).Str("playlist", playlistURL).Msg("Resolved playlist URL")
	return playlistURL, nil
}

func (r *Resolver) resolveOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", apperrors.NewConstructionError("source url", err.Error())
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewFetchError(pageURL, 0, err)
	}
	defer resp.Body.Close()

	if err := client.CheckStatus(resp); err != nil {
		return "", apperrors.NewFetchError(pageURL, resp.StatusCode, nil)
	}

	body, err := newUTF8Reader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", apperrors.NewFetchError(pageURL, 0, err)
	}

	// Relative references resolve against the page URL after redirects.
	base := resp.Request.URL
	return FindPlaylistURL(body, base)
}

// FindPlaylistURL scans an HTML document for the first .m3u8 reference and
// resolves it against base. Media elements and data attributes are checked
// before links; inline scripts and text are checked last.
func FindPlaylistURL(body io.Reader, base *url.URL) (string, error) {
	logger := config.GetLogger()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, s := range attributeSelectors {
		var found string
		doc.Find(s.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			value := strings.TrimSpace(sel.AttrOr(s.attr, ""))
			if isPlaylistRef(value) {
				found = value
				return false
			}
			return true
		})
		if found != "" {
			logger.Debug().Str("selector", s.selector).Str("ref", found).Msg("Found playlist reference")
			return resolveRef(base, found)
		}
	}

	var found string
	doc.Find("script, body").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		m := inlinePlaylistRe.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		found = m[0]
		if m[1] != "" {
			found = m[1]
		}
		return false
	})
	if found != "" {
		logger.Debug().Str("ref", found).Msg("Found inline playlist reference")
		return resolveRef(base, found)
	}

	return "", apperrors.NewConstructionError("source page", "no .m3u8 reference found at "+base.String())
}

func isPlaylistRef(value string) bool {
	if value == "" {
		return false
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

func resolveRef(base *url.URL, ref string) (string, error) {
	// Scripts often escape slashes in JSON strings.
	ref = strings.ReplaceAll(ref, `\/`, "/")
	u, err := url.Parse(ref)
	if err != nil {
		return "", apperrors.NewConstructionError("playlist url", err.Error())
	}
	return base.ResolveReference(u).String(), nil
}
