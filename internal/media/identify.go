package media

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	watchURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/(?:watch\?v=)?)([\w-]+)`)
	videoIDPattern  = regexp.MustCompile(`^[\w-]+$`)
)

// CanonicalID normalizes a watch URL or bare identifier to the canonical
// video identifier. Anything else is rejected with ErrUnsupportedInput
// before any process is spawned.
func CanonicalID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty input", ErrUnsupportedInput)
	}
	if match := watchURLPattern.FindStringSubmatch(trimmed); match != nil {
		return match[1], nil
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return "", fmt.Errorf("%w: %q is not a YouTube watch URL", ErrUnsupportedInput, input)
	}
	if !videoIDPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q is not a video identifier", ErrUnsupportedInput, input)
	}
	return trimmed, nil
}

// WatchURL returns the canonical watch URL for a video identifier.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL returns the medium-quality thumbnail URL for a video.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/mq2.jpg"
}
