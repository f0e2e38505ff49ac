// Package download fetches finished artifacts on behalf of the browser.
// It is independent of job state: any reference the gallery holds can be
// downloaded, whether or not a run is still in flight.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dreamboard/internal/domain"
	"dreamboard/internal/storage"
)

// Artifact is a fetched binary ready to stream to the browser.
type Artifact struct {
	Data     []byte
	MIME     string
	Filename string
}

// Bridge resolves artifact references and fetches their content. A
// FileStore, when configured, caches fetched bytes so repeat downloads of
// a finished gallery skip the render service.
type Bridge struct {
	httpClient *http.Client
	base       *url.URL
	store      *storage.FileStore
	maxBytes   int64
}

type Options struct {
	// BaseURL is the render service origin; site-relative references
	// resolve against it.
	BaseURL    string
	HTTPClient *http.Client
	Store      *storage.FileStore
	MaxBytes   int64
}

func NewBridge(opts Options) (*Bridge, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("download: parse base url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &Bridge{httpClient: client, base: base, store: opts.Store, maxBytes: maxBytes}, nil
}

// Resolve turns an artifact reference into an absolute URL. Absolute
// references pass through unmodified; site-relative ones resolve against
// the render service origin.
func (b *Bridge) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &domain.DownloadError{Ref: ref, Err: fmt.Errorf("empty reference")}
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", &domain.DownloadError{Ref: ref, Err: err}
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	return b.base.ResolveReference(parsed).String(), nil
}

// Fetch downloads the referenced artifact. Every failure comes back as a
// domain.DownloadError; nothing is dropped silently.
func (b *Bridge) Fetch(ctx context.Context, ref string) (*Artifact, error) {
	target, err := b.Resolve(ref)
	if err != nil {
		return nil, err
	}

	if cached := b.fromCache(ctx, ref); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.DownloadError{Ref: ref, Err: err}
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &domain.DownloadError{Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.DownloadError{Ref: ref, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.maxBytes))
	if err != nil {
		return nil, &domain.DownloadError{Ref: ref, Err: err}
	}

	artifact := &Artifact{
		Data:     data,
		MIME:     mimeFor(resp.Header.Get("Content-Type")),
		Filename: filenameFor(target),
	}
	b.toCache(ctx, ref, artifact.Data)
	return artifact, nil
}

func (b *Bridge) fromCache(ctx context.Context, ref string) *Artifact {
	if b.store == nil {
		return nil
	}
	data, err := b.store.Read(ctx, cacheKey(ref))
	if err != nil || len(data) == 0 {
		return nil
	}
	return &Artifact{Data: data, MIME: mimeFor(""), Filename: filenameFor(ref)}
}

func (b *Bridge) toCache(ctx context.Context, ref string, data []byte) {
	if b.store == nil || len(data) == 0 {
		return
	}
	// Cache misses are recoverable; a failed write only costs a re-fetch.
	_, _ = b.store.Write(ctx, cacheKey(ref), data)
}

func cacheKey(ref string) string {
	key := strings.TrimPrefix(ref, "https://")
	key = strings.TrimPrefix(key, "http://")
	return "artifacts/" + strings.TrimLeft(key, "/")
}

func filenameFor(target string) string {
	if idx := strings.LastIndex(target, "/"); idx >= 0 && idx < len(target)-1 {
		name := target[idx+1:]
		if q := strings.IndexByte(name, '?'); q >= 0 {
			name = name[:q]
		}
		if name != "" {
			return name
		}
	}
	return "artifact.png"
}

func mimeFor(contentType string) string {
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	if strings.HasPrefix(contentType, "image/") {
		return contentType
	}
	return "image/png"
}
