// Package feed obtains the raw XMLTV guide, from a local file or over HTTP
// with conditional GET. Remote fetches keep a checkpoint (validators plus a
// saved copy of the last body) so an unchanged feed costs one 304 instead
// of a full download.
package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/guidepack/guide-pack/internal/httpclient"
	"github.com/guidepack/guide-pack/internal/metrics"
)

// ErrUnexpectedStatus wraps non-200/304 responses from the guide server.
var ErrUnexpectedStatus = errors.New("feed: unexpected status")

// FetcherConfig wires a Fetcher.
type FetcherConfig struct {
	Client    *http.Client
	UserAgent string
	// StatePath holds the conditional-GET checkpoint; SavedPath holds the
	// decompressed body of the last successful download, reused on a 304.
	StatePath string
	SavedPath string
	Metrics   *metrics.Run
}

// Fetcher loads the guide body.
type Fetcher struct {
	client    *http.Client
	userAgent string
	statePath string
	savedPath string
	metrics   *metrics.Run
}

// NewFetcher builds a fetcher from cfg.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = httpclient.Default()
	}
	return &Fetcher{
		client:    cfg.Client,
		userAgent: cfg.UserAgent,
		statePath: cfg.StatePath,
		savedPath: cfg.SavedPath,
		metrics:   cfg.Metrics,
	}
}

// Load returns the decompressed guide body for source, which is either an
// http(s) URL or a local file path. Local files skip the checkpoint
// machinery entirely.
func (f *Fetcher) Load(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("feed: read %s: %w", source, err)
		}
		return decompress(data, "")
	}
	return f.loadRemote(ctx, source)
}

func (f *Fetcher) loadRemote(ctx context.Context, url string) ([]byte, error) {
	st, err := LoadState(f.statePath, SourceKey(url))
	if err != nil {
		return nil, err
	}

	body, notModified, err := f.get(ctx, url, st.ETag, st.LastModified)
	if err != nil {
		return nil, err
	}
	if notModified {
		if saved, err := os.ReadFile(f.savedPath); err == nil {
			log.Printf("feed: guide unchanged, using saved copy (%d bytes)", len(saved))
			return saved, nil
		}
		// Validators said unchanged but the saved copy is gone; fetch for real.
		log.Printf("feed: saved guide missing, re-downloading")
		body, _, err = f.get(ctx, url, "", "")
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// get performs one conditional GET. On 200 it decompresses the body, saves
// the checkpoint and the body copy, and returns it. On 304 it reports
// notModified.
func (f *Fetcher) get(ctx context.Context, url, etag, lastModified string) (body []byte, notModified bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("feed: build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	// Explicit Accept-Encoding disables the transport's transparent gzip,
	// so both encodings are decoded here.
	req.Header.Set("Accept-Encoding", "gzip, br")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := httpclient.DoWithRetry(ctx, f.client, req, httpclient.GuideRetryPolicy)
	if err != nil {
		return nil, false, fmt.Errorf("feed: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		io.Copy(io.Discard, resp.Body)
		return nil, true, nil
	case http.StatusOK:
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("%w: %s: %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("feed: read %s: %w", url, err)
	}
	f.metrics.FeedBytes(len(raw))

	body, err = decompress(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, false, err
	}

	f.checkpoint(url, resp, body)
	return body, false, nil
}

// checkpoint persists the saved body and validators. Failures here are
// logged, not returned: the run already has its guide.
func (f *Fetcher) checkpoint(url string, resp *http.Response, body []byte) {
	if f.savedPath != "" {
		if err := writeAtomic(f.savedPath, body); err != nil {
			log.Printf("feed: save guide copy: %v", err)
		}
	}
	if f.statePath == "" {
		return
	}
	st := &State{
		path:         f.statePath,
		SourceKey:    SourceKey(url),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now(),
		ContentHash:  ContentHash(body),
	}
	if err := st.Save(); err != nil {
		log.Printf("feed: %v", err)
	}
}

// decompress decodes the guide body. The Content-Encoding header wins; a
// bare body with the gzip magic (a .xml.gz served as octet-stream) is
// gunzipped too.
func decompress(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("feed: brotli decode: %w", err)
		}
		return out, nil
	case "gzip":
		return gunzip(data)
	case "", "identity":
		if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
			return gunzip(data)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("feed: unsupported content encoding %q", encoding)
	}
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("feed: gzip decode: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("feed: gzip decode: %w", err)
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(filepath.Clean(path))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".guide-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(name)
		if werr != nil {
			return werr
		}
		return cerr
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
