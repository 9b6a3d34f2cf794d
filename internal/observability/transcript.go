package observability

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Transcript is an append-only narration sink. Every line is kept in order,
// optionally echoed to a writer and mirrored to the logger at Debug.
//
// It is not safe for concurrent use.
type Transcript struct {
	out    io.Writer
	logger *zap.Logger
	lines  []string
}

// NewTranscript creates a Transcript. A nil out records without echoing.
//
// Precondition: logger must be non-nil.
func NewTranscript(out io.Writer, logger *zap.Logger) *Transcript {
	return &Transcript{out: out, logger: logger}
}

// Narrate appends line. A failed echo is logged and otherwise ignored so the
// battle never stalls on its output.
func (t *Transcript) Narrate(line string) {
	t.lines = append(t.lines, line)
	t.logger.Debug("narration", zap.String("line", line), zap.Int("seq", len(t.lines)))
	if t.out == nil {
		return
	}
	if _, err := fmt.Fprintln(t.out, line); err != nil {
		t.logger.Warn("narration: echo failed", zap.Error(err))
	}
}

// Lines returns a copy of every line narrated so far.
func (t *Transcript) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// Len returns the number of lines narrated.
func (t *Transcript) Len() int { return len(t.lines) }
