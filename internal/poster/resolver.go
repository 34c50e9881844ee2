package poster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/guidepack/guide-pack/internal/metrics"
	"github.com/guidepack/guide-pack/internal/safeurl"
)

var (
	// ErrUnsupportedURL means the preview URL is not something we fetch
	// (wrong scheme, no host).
	ErrUnsupportedURL = errors.New("poster: unsupported preview URL")
	// ErrFetchFailed wraps network-tier failures. Callers treat it as
	// per-episode recoverable.
	ErrFetchFailed = errors.New("poster: fetch failed")
)

// maxPosterBytes caps a single poster download. Guide icons are small;
// anything past this is a misconfigured URL, not a poster.
const maxPosterBytes = 10 << 20

// ResolverConfig wires a Resolver. Zero values get sensible defaults.
type ResolverConfig struct {
	Cache     *Cache
	Client    *http.Client
	UserAgent string

	// Network fetch rate, requests per second with a small burst. Guide
	// feeds can reference hundreds of distinct posters on a cold cache.
	RatePerSec float64
	Burst      int

	Metrics *metrics.Run
	Now     func() time.Time
}

// Resolver looks up poster bytes for a preview URL. Tiers, in order: the
// run-lifetime memory map, the disk cache, a rate-limited HTTP fetch.
// Fetched bytes backfill both caches. Safe for concurrent use.
type Resolver struct {
	cache     *Cache
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	metrics   *metrics.Run
	now       func() time.Time

	mu    sync.Mutex
	known map[string][]byte
}

// NewResolver builds a resolver from cfg.
func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 4
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		cache:     cfg.Cache,
		client:    cfg.Client,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		metrics:   cfg.Metrics,
		now:       cfg.Now,
		known:     make(map[string][]byte),
	}
}

// Resolve returns the poster bytes for url, consulting memory, then disk,
// then the network. One URL is fetched at most once per run regardless of
// how many episodes reference it.
func (r *Resolver) Resolve(ctx context.Context, url string) ([]byte, error) {
	r.mu.Lock()
	data, ok := r.known[url]
	r.mu.Unlock()
	if ok {
		r.metrics.PosterResolved("memory")
		return data, nil
	}

	if !safeurl.IsFetchableIcon(url) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}

	if r.cache != nil {
		if data, ok := r.cache.Read(url); ok {
			r.remember(url, data)
			r.metrics.PosterResolved("disk")
			return data, nil
		}
	}

	data, err := r.fetch(ctx, url)
	if err != nil {
		r.metrics.PosterFetchFailed()
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Write(url, data, r.now()); err != nil {
			// The bytes are still good for this run; only persistence failed.
			r.metrics.CacheWriteFailed()
			log.Printf("poster: %v", err)
		}
	}
	r.remember(url, data)
	r.metrics.PosterResolved("network")
	return data, nil
}

func (r *Resolver) remember(url string, data []byte) {
	r.mu.Lock()
	r.known[url] = data
	r.mu.Unlock()
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetchFailed, url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPosterBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if len(data) > maxPosterBytes {
		return nil, fmt.Errorf("%w: %s: response exceeds %d bytes", ErrFetchFailed, url, maxPosterBytes)
	}
	return data, nil
}
