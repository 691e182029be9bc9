package objectstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// newTestClient builds a Client with a pre-seeded cached authorization
// pointing at a local test server, bypassing the real B2 account-authorize
// call so the get-upload-url/upload leg can be exercised in isolation.
func newTestClient(apiURL string) *Client {
	c := New("key-id", "app-key", "test-bucket")
	c.auth = &authorization{
		apiURL:             apiURL,
		downloadURL:        apiURL,
		authorizationToken: "test-token",
		bucketID:           "bucket-1",
	}
	return c
}

func TestUploadSucceeds(t *testing.T) {
	var uploadedName string

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		uploadedName = r.Header.Get("X-Bz-File-Name")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux2 := http.NewServeMux()
	mux2.HandleFunc("/b2api/v2/b2_get_upload_url", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(getUploadURLResponse{UploadURL: srv.URL + "/upload", AuthorizationToken: "upload-token"})
	})
	srv2 := httptest.NewServer(mux2)
	defer srv2.Close()

	c := newTestClient(srv2.URL)

	dir := t.TempDir()
	clipPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clipPath, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	publicURL, err := c.Upload(context.Background(), clipPath, "clip.mp4")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if publicURL == "" {
		t.Error("expected a non-empty public URL")
	}
	if uploadedName != "clip.mp4" {
		t.Errorf("uploaded filename = %q, want clip.mp4", uploadedName)
	}
}

func TestUploadInvalidatesAuthOn401(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/b2api/v2/b2_get_upload_url", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL)

	dir := t.TempDir()
	clipPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clipPath, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := c.Upload(context.Background(), clipPath, "clip.mp4")
	if err == nil {
		t.Fatal("expected an error from repeated 401 responses")
	}
	if calls < 2 {
		t.Errorf("expected a retry after auth invalidation, got %d calls", calls)
	}
}
