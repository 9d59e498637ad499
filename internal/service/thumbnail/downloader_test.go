package thumbnail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtensionFromContentType(t *testing.T) {
	cases := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "jpg"},
		{"image/jpg", "jpg"},
		{"image/png", "png"},
		{"image/webp", "webp"},
		{"image/gif", "gif"},
		{"image/png; charset=binary", "png"},
		{"application/octet-stream", "jpg"},
	}
	for _, c := range cases {
		if got := extensionFromContentType(c.contentType); got != c.want {
			t.Errorf("extensionFromContentType(%q) = %q, want %q", c.contentType, got, c.want)
		}
	}
}

func TestPersistBytesRejectsOversizedImage(t *testing.T) {
	s := NewStore("https://store.example.com", "bucket", "key", "secret")
	big := make([]byte, maxSize+1)
	_, err := s.PersistBytes(context.Background(), big, "image/png", "instagram")
	if err == nil {
		t.Fatal("expected an error for an oversized image")
	}
}

func TestPersistBytesRejectsNonImageContentType(t *testing.T) {
	s := NewStore("https://store.example.com", "bucket", "key", "secret")
	_, err := s.PersistBytes(context.Background(), []byte("hello"), "text/plain", "instagram")
	if err == nil {
		t.Fatal("expected an error for a non-image content type")
	}
}

func TestPersistBytesUploadsAndReturnsDestination(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _, ok := r.BasicAuth()
		if ok {
			gotAuth = "present"
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewStore(server.URL, "bucket", "access-key", "secret-key")
	dest, err := s.PersistBytes(context.Background(), []byte("fake-image-bytes"), "image/png", "instagram")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(dest, server.URL+"/bucket/instagram/instagram-") {
		t.Fatalf("unexpected destination key: %q", dest)
	}
	if !strings.HasSuffix(dest, ".png") {
		t.Fatalf("expected .png extension in key, got %q", dest)
	}
	if gotPath == "" {
		t.Fatal("expected the upload request to reach the store")
	}
	if gotAuth != "present" {
		t.Fatal("expected basic auth credentials on the upload request")
	}
}

func TestPersistBytesReturnsErrorOnUploadRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := NewStore(server.URL, "bucket", "access-key", "secret-key")
	_, err := s.PersistBytes(context.Background(), []byte("fake-image-bytes"), "image/jpeg", "tiktok")
	if err == nil {
		t.Fatal("expected an error when the store rejects the upload")
	}
}

func TestPersistRejectsEmptyURL(t *testing.T) {
	s := NewStore("https://store.example.com", "bucket", "key", "secret")
	_, err := s.Persist(context.Background(), "", "instagram")
	if err == nil {
		t.Fatal("expected an error for an empty thumbnail url")
	}
}

func TestPersistFetchesAndUploads(t *testing.T) {
	fetchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("remote-thumbnail-bytes"))
	}))
	defer fetchServer.Close()

	uploadServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer uploadServer.Close()

	s := NewStore(uploadServer.URL, "bucket", "key", "secret")
	dest, err := s.Persist(context.Background(), fetchServer.URL+"/thumb.png", "pinterest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(dest, uploadServer.URL+"/bucket/pinterest/") {
		t.Fatalf("unexpected destination: %q", dest)
	}
}

func TestPersistRejectsNonImageRemoteContentType(t *testing.T) {
	fetchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer fetchServer.Close()

	s := NewStore("https://store.example.com", "bucket", "key", "secret")
	_, err := s.Persist(context.Background(), fetchServer.URL, "instagram")
	if err == nil {
		t.Fatal("expected an error for a non-image remote content type")
	}
}

func TestPersistRejectsNonOKRemoteStatus(t *testing.T) {
	fetchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer fetchServer.Close()

	s := NewStore("https://store.example.com", "bucket", "key", "secret")
	_, err := s.Persist(context.Background(), fetchServer.URL, "instagram")
	if err == nil {
		t.Fatal("expected an error for a non-200 remote status")
	}
}
