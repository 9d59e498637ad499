package platform

import (
	"context"
	"net/url"
	"regexp"

	"github.com/recipeforge/admission/internal/model"
)

var tiktokURLPattern = regexp.MustCompile(`(?i)^https?://(www\.|vm\.|vt\.)?tiktok\.com/`)

// TikTokHandler extracts audio via yt-dlp and metadata via TikTok's
// public oEmbed endpoint.
type TikTokHandler struct {
	ytDlpPath string
}

func NewTikTokHandler(ytDlpPath string) *TikTokHandler {
	return &TikTokHandler{ytDlpPath: ytDlpPath}
}

func (h *TikTokHandler) Name() string { return model.PlatformTikTok }

func (h *TikTokHandler) Matches(rawURL string) bool {
	return tiktokURLPattern.MatchString(rawURL)
}

func (h *TikTokHandler) ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error) {
	return extractAudioViaYtDlp(ctx, h.ytDlpPath, rawURL, outputDir)
}

func (h *TikTokHandler) FetchMetadata(ctx context.Context, rawURL string) (*model.Metadata, error) {
	oembedURL := "https://www.tiktok.com/oembed?url=" + url.QueryEscape(rawURL)
	return fetchOEmbed(ctx, oembedURL)
}

func (h *TikTokHandler) CleanDescription(text string) string {
	return cleanDescription(text, true)
}

func (h *TikTokHandler) Cleanup(path string) { cleanupFile(path) }
