package platform

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// dangerousCharsRegex matches shell metacharacters that must never reach a
// URL handed to exec, even though exec.CommandContext never invokes a
// shell. ? & = # are ordinary URL characters and stay allowed.
var dangerousCharsRegex = regexp.MustCompile(`[;|$` + "`" + `(){}<>]`)

// validateURLForExec rejects anything that isn't a well-formed http(s) URL
// before it is ever passed as an exec argument.
func validateURLForExec(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}
	if dangerousCharsRegex.MatchString(rawURL) {
		return fmt.Errorf("URL contains invalid characters")
	}
	if strings.ContainsAny(rawURL, "\n\r") {
		return fmt.Errorf("URL contains invalid characters")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	if len(rawURL) > 2048 {
		return fmt.Errorf("URL too long")
	}
	return nil
}

// extractAudioViaYtDlp runs yt-dlp against rawURL, asking it to extract
// and transcode audio to mp3, and returns the resulting file path. It
// fails loudly: a non-zero exit, or an exit with no output file, is
// always an error.
func extractAudioViaYtDlp(ctx context.Context, ytDlpPath, rawURL, outputDir string, extraArgs ...string) (string, error) {
	if err := validateURLForExec(rawURL); err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	baseFilename := fmt.Sprintf("audio_%s", uuid.New().String())
	outputTemplate := filepath.Join(outputDir, baseFilename+".%(ext)s")

	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--no-playlist",
		"--force-overwrites",
		"-o", outputTemplate,
	}
	args = append(args, extraArgs...)
	args = append(args, rawURL)

	cmd := exec.CommandContext(ctx, ytDlpPath, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		matches, _ := filepath.Glob(outputTemplate + "*")
		for _, m := range matches {
			os.Remove(m)
		}
		return "", fmt.Errorf("yt-dlp failed: %v, stderr: %s", err, stderr.String())
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, baseFilename+".*"))
	if err != nil {
		return "", fmt.Errorf("locate downloaded audio: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("yt-dlp reported success but produced no file")
	}

	audioPath := matches[0]
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("stat downloaded audio: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(audioPath)
		return "", fmt.Errorf("yt-dlp produced an empty audio file")
	}

	return audioPath, nil
}

// cleanupFile is the shared best-effort removal every handler uses.
func cleanupFile(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
}
