// Package platform implements the platform registry: one handler per
// supported video source, each owning URL detection, audio extraction,
// best-effort metadata fetch, and description cleanup for its platform.
package platform

import (
	"context"

	"github.com/recipeforge/admission/internal/model"
)

// Handler is a single platform's implementation of the registry contract.
type Handler interface {
	// Name is the platform identifier stored on the recipe row.
	Name() string

	// Matches reports whether rawURL belongs to this platform.
	Matches(rawURL string) bool

	// ExtractAudio invokes the external downloader and writes a uniquely
	// named audio file under outputDir. It fails loudly: a non-zero
	// downloader exit or an empty/missing output file is always an error,
	// never a silent empty result.
	ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error)

	// FetchMetadata is best-effort; a nil result with no error means
	// metadata simply wasn't available, not that the call failed fatally.
	FetchMetadata(ctx context.Context, rawURL string) (*model.Metadata, error)

	// CleanDescription collapses whitespace and strips hashtags, bare
	// URLs and, where appropriate, timestamps.
	CleanDescription(text string) string

	// Cleanup best-effort removes a file written by ExtractAudio.
	Cleanup(path string)
}

// Registry holds the ordered set of known platform handlers.
type Registry struct {
	handlers []Handler
}

// NewRegistry builds a registry from an ordered handler list. Order
// matters only in that Detect returns the first match.
func NewRegistry(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Detect returns the first handler whose Matches reports true for
// rawURL, or nil if none match.
func (r *Registry) Detect(rawURL string) Handler {
	for _, h := range r.handlers {
		if h.Matches(rawURL) {
			return h
		}
	}
	return nil
}

// NewDefaultRegistry wires the standard TikTok/YouTube/Instagram handlers
// against a shared yt-dlp binary path and optional Instagram cookie jar.
func NewDefaultRegistry(ytDlpPath, instagramCookiesPath string) *Registry {
	return NewRegistry(
		NewYouTubeHandler(ytDlpPath),
		NewTikTokHandler(ytDlpPath),
		NewInstagramHandler(ytDlpPath, instagramCookiesPath),
	)
}
