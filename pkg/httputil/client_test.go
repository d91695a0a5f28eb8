package httputil

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/cache"
)

func dataServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/genres.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"genres":[{"id":"post-punk","name":"后朋克"}]}`)
	})
	mux.HandleFunc("/data/post-punk/bands.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `[{"id":"p1","name":"海朋森","province":"四川","city":"成都"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteFSLoadsDataset(t *testing.T) {
	var hits atomic.Int32
	srv := dataServer(t, &hits)
	ctx := context.Background()

	fsys, err := NewRemoteFS(ctx, NewClient(ClientOptions{}), srv.URL+"/data")
	if err != nil {
		t.Fatal(err)
	}
	ds, err := band.Load(ctx, fsys, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Bands) != 1 || ds.Bands[0].Genre != "post-punk" {
		t.Errorf("bands = %+v", ds.Bands)
	}
}

func TestRemoteFSNotExist(t *testing.T) {
	var hits atomic.Int32
	srv := dataServer(t, &hits)

	fsys, _ := NewRemoteFS(context.Background(), NewClient(ClientOptions{}), srv.URL+"/data/")
	_, err := fs.ReadFile(fsys, "missing.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}

	f, err := fsys.Open("genres.json")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	info, _ := f.Stat()
	if info.Name() != "genres.json" || info.Size() == 0 {
		t.Errorf("Stat() = %s %d", info.Name(), info.Size())
	}

	if _, err := fsys.Open("../etc/passwd"); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("invalid path err = %v", err)
	}
}

func TestNewRemoteFSRejectsScheme(t *testing.T) {
	if _, err := NewRemoteFS(context.Background(), nil, "file:///tmp/data"); err == nil {
		t.Error("file URL should be rejected")
	}
}

func TestClientCachesBodies(t *testing.T) {
	var hits atomic.Int32
	srv := dataServer(t, &hits)
	ctx := context.Background()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	url := srv.URL + "/data/genres.json"

	c := NewClient(ClientOptions{Cache: fc})
	for range 3 {
		if _, err := c.Fetch(ctx, url); err != nil {
			t.Fatal(err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}

	refresh := NewClient(ClientOptions{Cache: fc, Refresh: true})
	if _, err := refresh.Fetch(ctx, url); err != nil {
		t.Fatal(err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times after refresh, want 2", n)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{RetryDelay: time.Millisecond})
	body, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" || calls.Load() != 3 {
		t.Errorf("body=%q calls=%d", body, calls.Load())
	}
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		calls   int32
		network bool
	}{
		{"not found", http.StatusNotFound, 1, false},
		{"bad request", http.StatusBadRequest, 1, true},
		{"unavailable", http.StatusServiceUnavailable, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{Attempts: 2, RetryDelay: time.Millisecond})
			_, err := c.Fetch(context.Background(), srv.URL)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := calls.Load(); got != tt.calls {
				t.Errorf("calls = %d, want %d", got, tt.calls)
			}
			if errors.Is(err, ErrNetwork) != tt.network {
				t.Errorf("errors.Is(err, ErrNetwork) = %v", !tt.network)
			}
		})
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: ErrNetwork}
	})
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("err=%v calls=%d", err, calls)
	}

	calls = 0
	plain := errors.New("bad")
	if err := Retry(ctx, 3, time.Millisecond, func() error { calls++; return plain }); err != plain || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = Retry(cctx, 3, time.Hour, func() error { return &RetryableError{Err: ErrNetwork} })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}
