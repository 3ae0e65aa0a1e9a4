package media

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedInput reports an input string that is neither a YouTube
	// watch URL nor a bare video identifier.
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrNotFound reports a metadata lookup that produced no video.
	ErrNotFound = errors.New("video not found")

	// ErrExtractionFailed reports a failed download or subtitle extraction.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrTranscodeFailed reports a failed transcode pass.
	ErrTranscodeFailed = errors.New("transcode failed")
)

// ProcessError wraps an external process failure with the last lines the
// process produced. Kind is one of ErrExtractionFailed or ErrTranscodeFailed
// so callers can match with errors.Is.
type ProcessError struct {
	Kind  error
	Op    string
	Lines []string
	Err   error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if len(e.Lines) > 0 {
		msg += "\nlast output:\n  " + strings.Join(e.Lines, "\n  ")
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

func (e *ProcessError) Is(target error) bool { return target == e.Kind }

const diagnosticLineCount = 20

// lineTail keeps the most recent lines forwarded through it.
type lineTail struct {
	lines []string
}

func (t *lineTail) add(line string) {
	if len(t.lines) == diagnosticLineCount {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:diagnosticLineCount-1]
	}
	t.lines = append(t.lines, line)
}
