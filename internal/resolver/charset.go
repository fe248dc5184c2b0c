package resolver

import (
	"io"

	"golang.org/x/net/html/charset"
)

// newUTF8Reader converts an episode page to UTF-8 before it reaches goquery.
// The encoding is taken from contentType when it names a charset, otherwise
// from a BOM, a <meta> declaration or content sniffing.
func newUTF8Reader(body io.Reader, contentType string) (io.Reader, error) {
	return charset.NewReader(body, contentType)
}
