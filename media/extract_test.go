package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// writeStubFFmpeg installs a shell script that records its arguments to
// the file named by STUB_ARG_LOG and writes a fixed payload to its last
// argument (the output path for both trim and concat invocations).
func writeStubFFmpeg(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return path
}

const okStub = `#!/bin/sh
echo "$@" >> "$STUB_ARG_LOG"
for last in "$@"; do :; done
printf 'AUDIO' > "$last"
`

const failStub = `#!/bin/sh
echo "frame dropped: boom" >&2
exit 1
`

func TestExtractSingleSegmentTrimsDirectly(t *testing.T) {
	argLog := filepath.Join(t.TempDir(), "args.log")
	t.Setenv("STUB_ARG_LOG", argLog)
	scratch := t.TempDir()
	x := NewExtractor(writeStubFFmpeg(t, okStub), scratch, testLog())

	out, err := x.Extract(context.Background(), []byte("source-wav"), []TimeSegment{{Start: 1, End: 3}})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(out) != "AUDIO" {
		t.Fatalf("unexpected output buffer: %q", out)
	}

	args, err := os.ReadFile(argLog)
	if err != nil {
		t.Fatalf("reading arg log: %v", err)
	}
	calls := strings.Split(strings.TrimSpace(string(args)), "\n")
	if len(calls) != 1 {
		t.Fatalf("single segment must be one invocation, got %d: %v", len(calls), calls)
	}
	if !strings.Contains(calls[0], "-ss 1.000 -t 2.000") {
		t.Fatalf("trim args missing start/duration: %s", calls[0])
	}
	if !strings.Contains(calls[0], "-c copy") {
		t.Fatalf("trim must stream-copy: %s", calls[0])
	}
}

func TestExtractMultiSegmentTrimsThenConcats(t *testing.T) {
	argLog := filepath.Join(t.TempDir(), "args.log")
	t.Setenv("STUB_ARG_LOG", argLog)
	scratch := t.TempDir()
	x := NewExtractor(writeStubFFmpeg(t, okStub), scratch, testLog())

	segs := []TimeSegment{{Start: 0, End: 1}, {Start: 2.5, End: 4}}
	out, err := x.Extract(context.Background(), []byte("source-wav"), segs)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if string(out) != "AUDIO" {
		t.Fatalf("unexpected output buffer: %q", out)
	}

	args, _ := os.ReadFile(argLog)
	calls := strings.Split(strings.TrimSpace(string(args)), "\n")
	if len(calls) != 3 {
		t.Fatalf("expected 2 trims + 1 concat, got %d calls", len(calls))
	}
	if !strings.Contains(calls[2], "concat=n=2:v=0:a=1[out]") {
		t.Fatalf("concat filter missing: %s", calls[2])
	}
	if !strings.Contains(calls[1], "-ss 2.500 -t 1.500") {
		t.Fatalf("second trim args wrong: %s", calls[1])
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("reading scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned up: %v", entries)
	}
}

func TestExtractToolFailureSurfacesOutputAndCleansUp(t *testing.T) {
	scratch := t.TempDir()
	x := NewExtractor(writeStubFFmpeg(t, failStub), scratch, testLog())

	_, err := x.Extract(context.Background(), []byte("source-wav"), []TimeSegment{{Start: 0, End: 1}, {Start: 1, End: 2}})
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !strings.Contains(xerr.Output, "boom") {
		t.Fatalf("tool diagnostics not captured: %q", xerr.Output)
	}

	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Fatalf("failed extraction left temp files behind: %v", entries)
	}
}

func TestExtractMissingBinary(t *testing.T) {
	x := NewExtractor(filepath.Join(t.TempDir(), "no-such-ffmpeg"), t.TempDir(), testLog())

	_, err := x.Extract(context.Background(), []byte("src"), []TimeSegment{{Start: 0, End: 1}})
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected ExtractionError for unspawnable tool, got %v", err)
	}
}

func TestExtractRejectsEmptySegments(t *testing.T) {
	x := NewExtractor("ffmpeg", t.TempDir(), testLog())
	if _, err := x.Extract(context.Background(), []byte("src"), nil); err == nil {
		t.Fatal("expected error for empty segment list")
	}
}

func TestExtractRejectsInvertedSegment(t *testing.T) {
	x := NewExtractor("ffmpeg", t.TempDir(), testLog())
	if _, err := x.Extract(context.Background(), []byte("src"), []TimeSegment{{Start: 2, End: 2}}); err == nil {
		t.Fatal("expected error for end <= start")
	}
}

func TestConcurrentExtractionsUseIsolatedWorkDirs(t *testing.T) {
	argLog := filepath.Join(t.TempDir(), "args.log")
	t.Setenv("STUB_ARG_LOG", argLog)
	scratch := t.TempDir()
	x := NewExtractor(writeStubFFmpeg(t, okStub), scratch, testLog())

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := x.Extract(context.Background(), []byte("src"), []TimeSegment{{Start: 0, End: 1}})
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent extract failed: %v", err)
		}
	}

	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Fatalf("scratch dir not empty after concurrent runs: %v", entries)
	}
}
