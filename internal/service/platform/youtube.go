package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/recipeforge/admission/internal/model"
)

var youtubeURLPattern = regexp.MustCompile(`(?i)^https?://(www\.|m\.)?(youtube\.com|youtu\.be)/`)

// YouTubeHandler extracts audio via yt-dlp and metadata via YouTube's
// public oEmbed endpoint.
type YouTubeHandler struct {
	ytDlpPath string
}

func NewYouTubeHandler(ytDlpPath string) *YouTubeHandler {
	return &YouTubeHandler{ytDlpPath: ytDlpPath}
}

func (h *YouTubeHandler) Name() string { return model.PlatformYouTube }

func (h *YouTubeHandler) Matches(rawURL string) bool {
	return youtubeURLPattern.MatchString(rawURL)
}

func (h *YouTubeHandler) ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error) {
	return extractAudioViaYtDlp(ctx, h.ytDlpPath, rawURL, outputDir)
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (h *YouTubeHandler) FetchMetadata(ctx context.Context, rawURL string) (*model.Metadata, error) {
	oembedURL := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(rawURL)
	return fetchOEmbed(ctx, oembedURL)
}

func (h *YouTubeHandler) CleanDescription(text string) string {
	return cleanDescription(text, false)
}

func (h *YouTubeHandler) Cleanup(path string) { cleanupFile(path) }

// fetchOEmbed is shared between platforms that expose a public oEmbed
// endpoint (YouTube, TikTok).
func fetchOEmbed(ctx context.Context, oembedURL string) (*model.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := safeClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oembed fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed returned HTTP %d", resp.StatusCode)
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode oembed response: %w", err)
	}

	meta := &model.Metadata{}
	if body.Title != "" {
		meta.Title = &body.Title
	}
	if body.AuthorName != "" {
		meta.Author = &body.AuthorName
	}
	if body.AuthorURL != "" {
		meta.AuthorURL = &body.AuthorURL
	}
	if body.ThumbnailURL != "" {
		meta.ThumbnailURL = &body.ThumbnailURL
	}
	return meta, nil
}
