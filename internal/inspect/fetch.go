// internal/inspect/fetch.go
package inspect

import (
	"compress/gzip"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// acceptEncoding is what a desktop Chrome advertises for documents.
const acceptEncoding = "gzip, deflate, br"

// NewClient returns the client used to fetch form pages. It advertises the
// same encodings a browser does and decodes the response body itself.
func NewClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via browser.ignore_tls_errors
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &decompressor{next: transport},
	}
}

// decompressor is an http.RoundTripper that negotiates compression and
// unwraps gzip and brotli bodies.
type decompressor struct {
	next http.RoundTripper
}

func (d *decompressor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	resp, err := d.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// decodeBody replaces resp.Body with a decoded stream. Stacked encodings are
// undone in reverse order.
func decodeBody(resp *http.Response) error {
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}
	for i := len(encodings) - 1; i >= 0; i-- {
		var (
			r   io.ReadCloser
			err error
		)
		switch enc := strings.ToLower(strings.TrimSpace(encodings[i])); enc {
		case "gzip":
			r, err = gzip.NewReader(resp.Body)
			if err != nil {
				return fmt.Errorf("gzip initialization error: %w", err)
			}
		case "br":
			r = io.NopCloser(brotli.NewReader(resp.Body))
		case "identity", "":
			continue
		default:
			return fmt.Errorf("unsupported Content-Encoding: %s", enc)
		}
		resp.Body = &stackedBody{ReadCloser: r, under: resp.Body}
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// stackedBody closes the decoder and the body it reads from.
type stackedBody struct {
	io.ReadCloser
	under io.ReadCloser
}

func (b *stackedBody) Close() error {
	return errors.Join(b.ReadCloser.Close(), b.under.Close())
}

// utf8Body converts a page body to UTF-8 using the declared or sniffed
// charset.
func utf8Body(body io.Reader, contentType string) (io.Reader, error) {
	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("could not determine page charset: %w", err)
	}
	return r, nil
}
