package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dreamboard/internal/domain"
	"dreamboard/internal/storage"
)

func TestResolve(t *testing.T) {
	bridge, err := NewBridge(Options{BaseURL: "https://render.example.com/api"})
	if err != nil {
		t.Fatalf("NewBridge error: %v", err)
	}

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "absolute passes through unmodified",
			ref:  "https://cdn.example.com/out/1.png",
			want: "https://cdn.example.com/out/1.png",
		},
		{
			name: "site-relative resolves against the render origin",
			ref:  "/artifacts/1.png",
			want: "https://render.example.com/artifacts/1.png",
		},
		{
			name: "relative path resolves against the base path",
			ref:  "artifacts/1.png",
			want: "https://render.example.com/artifacts/1.png",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := bridge.Resolve(tc.ref)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tc.ref, err)
			}
			if got != tc.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tc.ref, got, tc.want)
			}
		})
	}

	if _, err := bridge.Resolve("  "); err == nil {
		t.Fatalf("empty reference should be rejected")
	}
}

func TestFetchStreamsArtifact(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifacts/1.png" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	bridge, err := NewBridge(Options{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("NewBridge error: %v", err)
	}
	artifact, err := bridge.Fetch(context.Background(), "/artifacts/1.png")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(artifact.Data) != string(payload) {
		t.Fatalf("payload mismatch")
	}
	if artifact.MIME != "image/png" || artifact.Filename != "1.png" {
		t.Fatalf("metadata mismatch: %+v", artifact)
	}
}

func TestFetchFailureIsTypedNotSilent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	bridge, err := NewBridge(Options{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("NewBridge error: %v", err)
	}
	_, err = bridge.Fetch(context.Background(), "/missing.png")
	var downloadErr *domain.DownloadError
	if !errors.As(err, &downloadErr) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
}

func TestFetchUsesCacheOnSecondRead(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("img"))
	}))
	defer ts.Close()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	bridge, err := NewBridge(Options{BaseURL: ts.URL, Store: store})
	if err != nil {
		t.Fatalf("NewBridge error: %v", err)
	}

	if _, err := bridge.Fetch(context.Background(), "/artifacts/a.png"); err != nil {
		t.Fatalf("first Fetch error: %v", err)
	}
	if _, err := bridge.Fetch(context.Background(), "/artifacts/a.png"); err != nil {
		t.Fatalf("second Fetch error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one upstream hit with cache, got %d", hits)
	}
}
