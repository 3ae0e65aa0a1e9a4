package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NormalizeSubtitleFiles renames subtitle files for a video to the canonical
// <id>.en.<ext> form. Running it twice over the same directory is a no-op.
func NormalizeSubtitleFiles(dir, id string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan subtitle directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, id) {
			continue
		}
		for ext := range subtitleExtensions {
			if !strings.HasSuffix(name, ext) || strings.HasSuffix(name, ".en"+ext) {
				continue
			}
			canonical := filepath.Join(dir, id+".en"+ext)
			if err := os.Rename(filepath.Join(dir, name), canonical); err != nil {
				return fmt.Errorf("normalize subtitle %q: %w", name, err)
			}
		}
	}
	return nil
}

// TranscriptPath returns the canonical transcript location for a video.
func TranscriptPath(dir, id string) string {
	return filepath.Join(dir, id+".en.srt")
}
