package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/recipeforge/admission/internal/model"
)

var instagramURLPattern = regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/`)

// InstagramHandler extracts audio via yt-dlp (optionally authenticated
// with a cookie jar, since Instagram frequently gates reels behind
// login) and metadata via an Open-Graph scrape, since Instagram has no
// public oEmbed endpoint without app review.
type InstagramHandler struct {
	ytDlpPath   string
	cookiesPath string
}

func NewInstagramHandler(ytDlpPath, cookiesPath string) *InstagramHandler {
	return &InstagramHandler{ytDlpPath: ytDlpPath, cookiesPath: cookiesPath}
}

func (h *InstagramHandler) Name() string { return model.PlatformInstagram }

func (h *InstagramHandler) Matches(rawURL string) bool {
	return instagramURLPattern.MatchString(rawURL)
}

func (h *InstagramHandler) ExtractAudio(ctx context.Context, rawURL, outputDir string) (string, error) {
	var extra []string
	if h.cookiesPath != "" {
		extra = append(extra, "--cookies", h.cookiesPath)
	}
	return extractAudioViaYtDlp(ctx, h.ytDlpPath, rawURL, outputDir, extra...)
}

func (h *InstagramHandler) FetchMetadata(ctx context.Context, rawURL string) (*model.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := safeClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, 5<<20)
	doc, err := goquery.NewDocumentFromReader(limited)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	meta := &model.Metadata{}
	if title, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && title != "" {
		meta.Title = &title
	}
	if image, ok := doc.Find("meta[property='og:image']").Attr("content"); ok && image != "" {
		meta.ThumbnailURL = &image
	}
	if author, ok := doc.Find("meta[property='og:site_name']").Attr("content"); ok && author != "" {
		meta.Author = &author
	}

	if meta.Title == nil && meta.ThumbnailURL == nil && meta.Author == nil {
		return nil, nil
	}
	return meta, nil
}

func (h *InstagramHandler) CleanDescription(text string) string {
	cleaned := cleanDescription(text, true)
	return strings.TrimSpace(cleaned)
}

func (h *InstagramHandler) Cleanup(path string) { cleanupFile(path) }
