// Package media cuts and joins time-ranged segments of a source recording
// by shelling out to ffmpeg. Each call works inside its own scratch
// directory so concurrent extractions never interfere.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TimeSegment is a half-open [Start, End) range in seconds on the source
// recording's timeline. End must be greater than Start.
type TimeSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s TimeSegment) Duration() float64 { return s.End - s.Start }

// ExtractionError reports an ffmpeg invocation that could not be spawned
// or exited non-zero, carrying the tool's diagnostic output (truncated).
type ExtractionError struct {
	Op     string
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("media %s: %v: %s", e.Op, e.Err, e.Output)
	}
	return fmt.Sprintf("media %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

const maxToolOutput = 2048

type Extractor struct {
	ffmpegPath string
	scratchDir string
	log        *logrus.Entry
}

func NewExtractor(ffmpegPath, scratchDir string, log *logrus.Entry) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "conversation-pipeline")
	}
	return &Extractor{ffmpegPath: ffmpegPath, scratchDir: scratchDir, log: log}
}

// Extract trims every segment out of src and concatenates them in the
// given order into a single audio buffer. A lone segment is trimmed
// directly with stream copy; multiple segments are trimmed to temporary
// parts and joined with ffmpeg's concat filter. All temporary files live
// in a uniquely named working directory that is removed on every exit
// path.
func (x *Extractor) Extract(ctx context.Context, src []byte, segments []TimeSegment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("media extract: no segments given")
	}
	for i, seg := range segments {
		if seg.End <= seg.Start {
			return nil, fmt.Errorf("media extract: segment %d has end %.3f <= start %.3f", i, seg.End, seg.Start)
		}
	}

	workDir := filepath.Join(x.scratchDir, uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("media extract: create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			x.log.WithError(err).WithField("dir", workDir).Warn("failed to clean up extraction work dir")
		}
	}()

	srcPath := filepath.Join(workDir, "source.wav")
	if err := os.WriteFile(srcPath, src, 0o644); err != nil {
		return nil, fmt.Errorf("media extract: write source: %w", err)
	}

	outPath := filepath.Join(workDir, "joined.wav")
	if len(segments) == 1 {
		if err := x.trim(ctx, srcPath, outPath, segments[0]); err != nil {
			return nil, err
		}
	} else {
		parts := make([]string, len(segments))
		for i, seg := range segments {
			parts[i] = filepath.Join(workDir, fmt.Sprintf("part_%03d.wav", i))
			if err := x.trim(ctx, srcPath, parts[i], seg); err != nil {
				return nil, err
			}
		}
		if err := x.concat(ctx, parts, outPath); err != nil {
			return nil, err
		}
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("media extract: read output: %w", err)
	}
	return out, nil
}

// trim copies one segment out of src without re-encoding.
func (x *Extractor) trim(ctx context.Context, srcPath, outPath string, seg TimeSegment) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(seg.Start),
		"-t", formatSeconds(seg.Duration()),
		"-i", srcPath,
		"-c", "copy",
		outPath,
	}
	return x.run(ctx, "trim", args)
}

// concat joins the part files in order via the concat filter.
func (x *Extractor) concat(ctx context.Context, parts []string, outPath string) error {
	args := []string{"-y"}
	filter := ""
	for i, p := range parts {
		args = append(args, "-i", p)
		filter += fmt.Sprintf("[%d:a]", i)
	}
	filter += fmt.Sprintf("concat=n=%d:v=0:a=1[out]", len(parts))
	args = append(args, "-filter_complex", filter, "-map", "[out]", outPath)
	return x.run(ctx, "concat", args)
}

func (x *Extractor) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, x.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ExtractionError{Op: op, Output: truncate(string(out), maxToolOutput), Err: err}
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
