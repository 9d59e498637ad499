package platform

import (
	"regexp"
	"strings"
)

var (
	reHashtag   = regexp.MustCompile(`#\S+`)
	reTimestamp = regexp.MustCompile(`\b\d{1,2}:\d{2}(:\d{2})?\b`)
	reBareURL   = regexp.MustCompile(`https?://\S+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// cleanDescription collapses whitespace and strips hashtags, timestamps,
// and bare URLs from a platform caption before it's handed to the LLM as
// extra context. stripTimestamps is false for platforms (like YouTube)
// where chapter markers in the description are useful signal.
func cleanDescription(text string, stripTimestamps bool) string {
	out := reHashtag.ReplaceAllString(text, "")
	out = reBareURL.ReplaceAllString(out, "")
	if stripTimestamps {
		out = reTimestamp.ReplaceAllString(out, "")
	}
	out = reWhitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
