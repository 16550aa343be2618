package collector

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	DefaultSourceURL = "http://41.33.162.236/egs4"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxPageBytes = 16 << 20
)

// EGXFetcher downloads the exchange price page. The server answers
// differently to clients that do not look like a browser, hence the headers.
type EGXFetcher struct {
	URL    string
	Client *resty.Client
}

// NewEGXFetcher creates a fetcher with a bounded timeout and optional proxy.
func NewEGXFetcher(url string, timeout time.Duration, userAgent, proxyURL string) *EGXFetcher {
	if url == "" {
		url = DefaultSourceURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Accept-Encoding": "gzip, deflate",
			"Connection":      "keep-alive",
		})
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &EGXFetcher{URL: url, Client: client}
}

func (f *EGXFetcher) Name() string { return "egx" }

// FetchPage performs one GET and returns the decoded page. Non-2xx answers
// are errors.
func (f *EGXFetcher) FetchPage(ctx context.Context) (string, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(f.URL)
	if err != nil {
		return "", fmt.Errorf("egx fetch: %w", err)
	}
	body := resp.RawBody()
	if body == nil {
		return "", fmt.Errorf("egx fetch: empty response")
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("egx read body: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("egx: status %d", resp.StatusCode())
	}
	page, err := decodeBody(raw, resp.Header())
	if err != nil {
		return "", fmt.Errorf("egx decode body: %w", err)
	}
	return page, nil
}

// decodeBody undoes Content-Encoding and converts the page to UTF-8.
// The Go transport only decompresses transparently when it set
// Accept-Encoding itself, which is not the case here.
func decodeBody(raw []byte, h http.Header) (string, error) {
	data, err := decompress(raw, strings.ToLower(strings.TrimSpace(h.Get("Content-Encoding"))))
	if err != nil {
		return "", err
	}

	charset := ""
	if _, params, err := mime.ParseMediaType(h.Get("Content-Type")); err == nil {
		charset = params["charset"]
	}
	if charset == "" {
		charset = sniffCharset(data)
	}
	charset = strings.ToLower(charset)
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(data), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		// Unknown label: hand back the bytes and let the extractor cope.
		return string(data), nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("charset %s: %w", charset, err)
	}
	return string(out), nil
}

func decompress(raw []byte, encoding string) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch encoding {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(raw))
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		r, err = zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(raw)), nil
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxPageBytes))
}

// sniffCharset looks for a charset declaration in the page head.
func sniffCharset(page []byte) string {
	head := page
	if len(head) > 2048 {
		head = head[:2048]
	}
	lower := bytes.ToLower(head)
	i := bytes.Index(lower, []byte("charset="))
	if i < 0 {
		return ""
	}
	rest := lower[i+len("charset="):]
	rest = bytes.TrimLeft(rest, `"' `)
	end := bytes.IndexAny(rest, `"'; />`)
	if end < 0 {
		end = len(rest)
	}
	return string(rest[:end])
}
