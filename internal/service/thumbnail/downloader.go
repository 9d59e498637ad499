// Package thumbnail downloads a remote recipe thumbnail and re-uploads it
// to the object store under a stable per-platform key.
package thumbnail

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"
)

const maxSize = 5 << 20 // 5MB

// httpClient is a dedicated client with strict timeouts for both the
// remote fetch and the object-store upload.
var httpClient = &http.Client{
	Timeout: 15 * time.Second,
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		ResponseHeaderTimeout: 5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
	},
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	},
}

// Store uploads thumbnails to an S3-compatible object store over its REST
// PUT interface — the same plain net/http idiom this service uses for its
// other external HTTP collaborators.
type Store struct {
	endpoint  string
	bucket    string
	accessKey string
	secretKey string
}

func NewStore(endpoint, bucket, accessKey, secretKey string) *Store {
	return &Store{endpoint: strings.TrimRight(endpoint, "/"), bucket: bucket, accessKey: accessKey, secretKey: secretKey}
}

// Persist downloads the remote thumbnail at url and uploads it under a
// fresh object key scoped to platform. Any failure returns an empty
// string and an error; the caller is expected to proceed with
// image_url = null rather than fail the whole request.
func (s *Store) Persist(ctx context.Context, url, platform string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty thumbnail url")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("not an image: %s", ct)
	}
	if resp.ContentLength > maxSize {
		return "", fmt.Errorf("image too large (%d bytes)", resp.ContentLength)
	}

	limited := io.LimitReader(resp.Body, maxSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read thumbnail body: %w", err)
	}
	if len(body) > maxSize {
		return "", fmt.Errorf("image too large (%d bytes)", len(body))
	}

	return s.PersistBytes(ctx, body, ct, platform)
}

// PersistBytes uploads an already-fetched image (e.g. generated inline
// by the image LLM) under a fresh object key scoped to platform. Used
// directly by the preference-driven generation flow, which never has a
// remote thumbnail URL to download in the first place.
func (s *Store) PersistBytes(ctx context.Context, body []byte, contentType, platform string) (string, error) {
	if len(body) > maxSize {
		return "", fmt.Errorf("image too large (%d bytes)", len(body))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("not an image: %s", contentType)
	}

	ext := extensionFromContentType(contentType)
	platformLower := strings.ToLower(platform)
	key := fmt.Sprintf("%s/%s-%d-%d.%s", platformLower, platformLower, time.Now().UnixMilli(), rand.Int63(), ext)

	return s.upload(ctx, key, contentType, body)
}

func (s *Store) upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	uploadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dest := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	req, err := http.NewRequestWithContext(uploadCtx, http.MethodPut, dest, strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-amz-acl", "public-read")
	req.SetBasicAuth(s.accessKey, s.secretKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}

	return dest, nil
}

func extensionFromContentType(ct string) string {
	subtype := ct
	if idx := strings.Index(ct, "/"); idx != -1 {
		subtype = ct[idx+1:]
	}
	if idx := strings.Index(subtype, ";"); idx != -1 {
		subtype = subtype[:idx]
	}
	switch subtype {
	case "jpeg", "jpg":
		return "jpg"
	case "png":
		return "png"
	case "webp":
		return "webp"
	case "gif":
		return "gif"
	default:
		return "jpg"
	}
}
