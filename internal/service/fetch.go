package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ImageFetcher downloads a source image for image-to-image generation.
// Redirects are followed manually so cross-protocol hops work, the payload
// size is capped both by the declared length and a running count, and HTML
// landing pages fall back to their og:image once.
type ImageFetcher struct {
	client  *http.Client
	maxSize int64
}

func NewImageFetcher() *ImageFetcher {
	return &ImageFetcher{
		client: &http.Client{
			Timeout: config.DownloadTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxSize: config.MaxImageDownloadSize,
	}
}

// FetchResult carries the downloaded bytes and the detected MIME type.
type FetchResult struct {
	Data     []byte
	MimeType string
}

func (f *ImageFetcher) Fetch(ctx context.Context, imageURL string) (*FetchResult, error) {
	return f.fetch(ctx, imageURL, true)
}

func (f *ImageFetcher) fetch(ctx context.Context, imageURL string, allowHTML bool) (*FetchResult, error) {
	currentURL := imageURL

	for hop := 0; hop < config.MaxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, "GET", currentURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create download request: %w", err)
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "image/*, */*")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("download image: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, fmt.Errorf("redirect without location (%s)", currentURL)
			}
			next, err := resolveLocation(currentURL, location)
			if err != nil {
				return nil, err
			}
			currentURL = next
			slog.Debug("image download redirect", "url", currentURL)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d (%s)", resp.StatusCode, currentURL)
		}

		// A Content-Length over the cap fails fast, but a missing or lying
		// header must not bypass the limit, hence the counted read below.
		if resp.ContentLength > f.maxSize {
			resp.Body.Close()
			return nil, fmt.Errorf("%w (%d MB, max %d MB)", domain.ErrImageTooLarge,
				resp.ContentLength/1024/1024, f.maxSize/1024/1024)
		}

		data, err := readCapped(resp.Body, f.maxSize)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, domain.ErrEmptyBody
		}

		contentType := resp.Header.Get("Content-Type")
		if allowHTML && strings.Contains(strings.ToLower(contentType), "text/html") {
			return f.fetchFromHTML(ctx, currentURL, data)
		}

		return &FetchResult{
			Data:     data,
			MimeType: detectMimeType(currentURL, contentType),
		}, nil
	}

	return nil, domain.ErrTooManyRedirects
}

// fetchFromHTML extracts the page's og:image and fetches that instead. Only
// one level of indirection is allowed.
func (f *ImageFetcher) fetchFromHTML(ctx context.Context, pageURL string, body []byte) (*FetchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html page: %w", err)
	}

	imgURL, ok := doc.Find(`meta[property="og:image"]`).Attr("content")
	if !ok || imgURL == "" {
		return nil, fmt.Errorf("url points to a web page without an og:image (%s)", pageURL)
	}

	resolved, err := resolveLocation(pageURL, imgURL)
	if err != nil {
		return nil, err
	}
	slog.Debug("following og:image", "page", pageURL, "image", resolved)
	return f.fetch(ctx, resolved, false)
}

func readCapped(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > max {
		return nil, domain.ErrImageTooLarge
	}
	return data, nil
}

// resolveLocation resolves a possibly relative Location header against the
// previous request's URL.
func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("parse current url: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse redirect location: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// detectMimeType prefers the declared content type, falls back to the URL
// extension, and defaults to PNG when neither is conclusive.
func detectMimeType(imageURL, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image/png"):
		return "image/png"
	case strings.Contains(ct, "image/jpeg"), strings.Contains(ct, "image/jpg"):
		return "image/jpeg"
	case strings.Contains(ct, "image/webp"):
		return "image/webp"
	case strings.Contains(ct, "image/gif"):
		return "image/gif"
	}

	lower := strings.ToLower(imageURL)
	switch {
	case strings.Contains(lower, ".png"):
		return "image/png"
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"):
		return "image/jpeg"
	case strings.Contains(lower, ".webp"):
		return "image/webp"
	case strings.Contains(lower, ".gif"):
		return "image/gif"
	}
	return "image/png"
}
