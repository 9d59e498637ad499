package model

// Platform names the source of a video URL. Generated is assigned, not
// matched, when a request carries no source URL.
const (
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformInstagram = "instagram"
	PlatformGenerated = "generated"
)

// Metadata is the platform-sourced title/author/thumbnail record. All
// fields are optional: retrieval is best-effort and source-dependent
// (oEmbed for some platforms, Open-Graph scrape for others).
type Metadata struct {
	Title        *string
	Author       *string
	AuthorURL    *string
	ThumbnailURL *string
}
