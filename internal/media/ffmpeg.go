package media

import (
	"context"
	"fmt"
	"strings"
)

// TranscodeTarget returns the temporary output path a transcode writes to
// before the original is replaced.
func TranscodeTarget(location, format string) string {
	return strings.Replace(location, "."+format, ".tmp."+format, 1)
}

// Transcode re-encodes the media at location into a temporary sibling file,
// forwarding ffmpeg output lines as produced, and returns the temporary
// path. Replacing the original is the caller's decision; this never touches
// the source file.
func (e *Extractor) Transcode(ctx context.Context, location, format string, onLine func(string)) (string, error) {
	target := TranscodeTarget(location, format)
	if target == location {
		return "", &ProcessError{
			Kind: ErrTranscodeFailed,
			Op:   "transcode",
			Err:  fmt.Errorf("cannot derive transcode target for %q with format %q", location, format),
		}
	}

	args := []string{
		"-y",
		"-i", location,
		"-c:v", "libx265",
		"-crf", "26",
		"-preset", "medium",
		"-c:a", "copy",
		target,
	}

	tail := &lineTail{}
	err := e.exec.Run(ctx, e.ffmpegBinary, args, func(line string) {
		tail.add(line)
		if onLine != nil {
			onLine(line)
		}
	})
	if err != nil {
		return "", &ProcessError{Kind: ErrTranscodeFailed, Op: "transcode", Lines: tail.lines, Err: err}
	}
	return target, nil
}
