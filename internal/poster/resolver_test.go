package poster

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func posterServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("img:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_fetchesOncePerURL(t *testing.T) {
	var hits atomic.Int64
	srv := posterServer(t, &hits)
	c := openTestCache(t)
	r := NewResolver(ResolverConfig{Cache: c, Client: srv.Client(), RatePerSec: 1000, Burst: 1000})

	url := srv.URL + "/a.jpg"
	for i := 0; i < 3; i++ {
		data, err := r.Resolve(context.Background(), url)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "img:/a.jpg" {
			t.Fatalf("data = %q", data)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestResolve_diskCacheSurvivesResolver(t *testing.T) {
	var hits atomic.Int64
	srv := posterServer(t, &hits)
	c := openTestCache(t)
	url := srv.URL + "/b.jpg"

	r1 := NewResolver(ResolverConfig{Cache: c, Client: srv.Client(), RatePerSec: 1000, Burst: 1000})
	if _, err := r1.Resolve(context.Background(), url); err != nil {
		t.Fatal(err)
	}

	// Fresh resolver, same cache dir: the bytes must come from disk.
	r2 := NewResolver(ResolverConfig{Cache: c, Client: srv.Client(), RatePerSec: 1000, Burst: 1000})
	data, err := r2.Resolve(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "img:/b.jpg" {
		t.Fatalf("data = %q", data)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestResolve_unsupportedURL(t *testing.T) {
	r := NewResolver(ResolverConfig{})
	for _, u := range []string{"", "ftp://host/x.jpg", "file:///etc/passwd", "http://"} {
		if _, err := r.Resolve(context.Background(), u); !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("Resolve(%q) err = %v, want ErrUnsupportedURL", u, err)
		}
	}
}

func TestResolve_httpErrorIsFetchFailed(t *testing.T) {
	var hits atomic.Int64
	srv := posterServer(t, &hits)
	r := NewResolver(ResolverConfig{Client: srv.Client(), RatePerSec: 1000, Burst: 1000})

	_, err := r.Resolve(context.Background(), srv.URL+"/missing.jpg")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	// Failures are not remembered; a retry hits the server again.
	r.Resolve(context.Background(), srv.URL+"/missing.jpg")
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestResolve_worksWithoutCache(t *testing.T) {
	var hits atomic.Int64
	srv := posterServer(t, &hits)
	r := NewResolver(ResolverConfig{Client: srv.Client(), RatePerSec: 1000, Burst: 1000})

	data, err := r.Resolve(context.Background(), srv.URL+"/c.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "img:/c.jpg" {
		t.Fatalf("data = %q", data)
	}
	// Memory tier still dedups without a disk cache.
	r.Resolve(context.Background(), srv.URL+"/c.jpg")
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}
