package processor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/ZacxDev/shrinkvid/internal/ffmpeg"
	"github.com/ZacxDev/shrinkvid/pkg/types"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func newTestBatch(enc Encoder, outDir string) *Batch {
	c := NewCompressor(hdProber(), enc, testTarget, zerolog.Nop())
	return NewBatch(c, outDir, zerolog.Nop())
}

func TestBatchRunContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	good := makeSource(t, dir, "good.mp4", 2<<20)
	missing := filepath.Join(dir, "missing.mp4")
	other := makeSource(t, dir, "other.mov", 2<<20)

	rec := &statusRecorder{}
	b := newTestBatch(&fakeEncoder{sizeFor: sizeByHeight(2000)}, outDir)

	summary, err := b.Run(context.Background(), []string{missing, good, other, good}, rec.sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.BatchID != b.ID() || summary.TargetSize != testTarget {
		t.Errorf("summary header = %+v", summary)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("got %d results, want 3 (duplicate dropped)", len(summary.Results))
	}

	if r := summary.Results[0]; r.Outcome != types.OutcomeFailed || !errors.Is(r.Err, ErrInputNotFound) {
		t.Errorf("missing file result = %+v", r)
	}
	for _, r := range summary.Results[1:] {
		if r.Outcome != types.OutcomeSucceeded {
			t.Errorf("%s: outcome %s (%v)", r.InputPath, r.Outcome, r.Err)
		}
		if _, err := os.Stat(r.OutputPath); err != nil {
			t.Errorf("output missing: %v", err)
		}
	}
	if got := summary.Results[1].OutputPath; got != filepath.Join(outDir, "compressed_good.mp4") {
		t.Errorf("OutputPath = %s", got)
	}
	if left := tempArtifacts(t, outDir); len(left) != 0 {
		t.Errorf("temp files left: %v", left)
	}
	if summary.Count(types.OutcomeSucceeded) != 2 || summary.AllSucceeded() {
		t.Errorf("counts wrong: %+v", summary)
	}

	for _, line := range []string{
		"Processing 3 files",
		"File good.mp4 done",
		"All files processed: 2 succeeded, 0 exhausted, 1 failed, 0 skipped",
	} {
		if !rec.has(LevelInfo, line) {
			t.Errorf("missing status line %q", line)
		}
	}
}

func TestBatchRunNoInputs(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	b := newTestBatch(&fakeEncoder{}, outDir)

	summary, err := b.Run(context.Background(), []string{"", ""}, nil)
	if !errors.Is(err, ErrNoInputs) || !errors.Is(summary.Err, ErrNoInputs) {
		t.Fatalf("Run() error = %v", err)
	}
	if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
		t.Error("output folder created for an empty batch")
	}
}

func TestBatchRunLocked(t *testing.T) {
	outDir := t.TempDir()
	held := flock.New(filepath.Join(outDir, config.LockFileName))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer held.Unlock()

	src := makeSource(t, t.TempDir(), "a.mp4", 2<<20)
	enc := &fakeEncoder{}
	_, err = newTestBatch(enc, outDir).Run(context.Background(), []string{src}, nil)
	if !errors.Is(err, ErrBatchLocked) {
		t.Fatalf("Run() error = %v, want ErrBatchLocked", err)
	}
	if len(enc.jobs) != 0 {
		t.Error("encoder ran while folder was locked")
	}
}

func TestBatchRunCancelledSkipsRemaining(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	first := makeSource(t, dir, "first.mp4", 2<<20)
	second := makeSource(t, dir, "second.mp4", 2<<20)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enc := &fakeEncoder{
		fail: func(ctx context.Context, _ ffmpeg.EncodeJob) error {
			cancel()
			return &ffmpeg.EncodeError{Err: ctx.Err()}
		},
	}

	summary, err := newTestBatch(enc, outDir).Run(ctx, []string{first, second}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r := summary.Results[0]; r.Outcome != types.OutcomeFailed {
		t.Errorf("in-flight file outcome = %s", r.Outcome)
	}
	if r := summary.Results[1]; r.Outcome != types.OutcomeSkipped || !errors.Is(r.Err, context.Canceled) {
		t.Errorf("queued file result = %+v", r)
	}
	if left := tempArtifacts(t, outDir); len(left) != 0 {
		t.Errorf("temp files left: %v", left)
	}
}

func TestBatchRunRecoversPanics(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	bad := makeSource(t, dir, "bad.mp4", 2<<20)
	good := makeSource(t, dir, "good.mp4", 2<<20)

	enc := encoderFunc(func(_ context.Context, job ffmpeg.EncodeJob) error {
		if filepath.Base(job.InputPath) == "bad.mp4" {
			panic("decoder exploded")
		}
		return writeSized(job.OutputPath, 1024)
	})

	summary, err := newTestBatch(enc, outDir).Run(context.Background(), []string{bad, good}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r := summary.Results[0]; r.Outcome != types.OutcomeFailed || r.Err == nil {
		t.Errorf("panicking file result = %+v", r)
	}
	if r := summary.Results[1]; r.Outcome != types.OutcomeSucceeded {
		t.Errorf("next file result = %+v", r)
	}
}

func TestBatchStart(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	src := makeSource(t, dir, "clip.mp4", 2<<20)

	statuses, done := newTestBatch(&fakeEncoder{sizeFor: sizeByHeight(2000)}, outDir).
		Start(context.Background(), []string{src})

	var lines []Status
	for s := range statuses {
		lines = append(lines, s)
	}
	summary := <-done

	if summary.Err != nil {
		t.Fatalf("summary error = %v", summary.Err)
	}
	if !summary.AllSucceeded() {
		t.Errorf("summary = %+v", summary)
	}
	if len(lines) == 0 || lines[0].Message != "Processing 1 files" {
		t.Errorf("first status = %+v", lines)
	}
	if last := lines[len(lines)-1]; last.Message != "All files processed: 1 succeeded, 0 exhausted, 0 failed, 0 skipped" {
		t.Errorf("last status = %+v", last)
	}
	if _, ok := <-done; ok {
		t.Error("done channel delivered twice")
	}
}

func TestBatchStartSetupError(t *testing.T) {
	statuses, done := newTestBatch(&fakeEncoder{}, t.TempDir()).Start(context.Background(), nil)
	for range statuses {
	}
	if summary := <-done; !errors.Is(summary.Err, ErrNoInputs) {
		t.Errorf("summary error = %v, want ErrNoInputs", summary.Err)
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a.mp4", "./a.mp4", "b.mp4", "", "dir/../a.mp4", "b.mp4"})
	if len(got) != 2 || got[0] != "a.mp4" || got[1] != "b.mp4" {
		t.Errorf("dedupe() = %v", got)
	}
}

func TestBatchRunRejectsOutputNameCollision(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	first := makeSource(t, filepath.Join(dir, "a"), "clip.mp4", 2<<20)
	second := makeSource(t, filepath.Join(dir, "b"), "clip.mp4", 2<<20)

	enc := &fakeEncoder{sizeFor: sizeByHeight(2000)}
	rec := &statusRecorder{}
	summary, err := newTestBatch(enc, outDir).Run(context.Background(), []string{first, second}, rec.sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(summary.Results))
	}

	kept := summary.Results[0]
	if kept.Outcome != types.OutcomeSucceeded {
		t.Fatalf("first result = %+v", kept)
	}
	clash := summary.Results[1]
	if clash.Outcome != types.OutcomeFailed || !errors.Is(clash.Err, ErrOutputCollision) {
		t.Errorf("second result = %+v, want output collision", clash)
	}
	if clash.Err != nil && !strings.Contains(clash.Err.Error(), first) {
		t.Errorf("collision error %q does not name %s", clash.Err, first)
	}

	for _, job := range enc.jobs {
		if job.InputPath == second {
			t.Fatal("colliding input was encoded")
		}
	}
	info, err := os.Stat(kept.OutputPath)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() != kept.OutputSize {
		t.Errorf("output holds %d bytes, first result says %d", info.Size(), kept.OutputSize)
	}
	want := "Error processing clip.mp4: output name already used in this batch: " +
		first + " and " + second + " both write compressed_clip.mp4"
	if !rec.has(LevelError, want) {
		t.Errorf("collision not reported in %v", rec.lines)
	}
}

func TestBatchRunRemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	src := makeSource(t, dir, "clip.mp4", 2<<20)

	if _, err := newTestBatch(&fakeEncoder{sizeFor: sizeByHeight(2000)}, outDir).
		Run(context.Background(), []string{src}, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, config.LockFileName)); !os.IsNotExist(err) {
		t.Errorf("lock file left in output folder: %v", err)
	}
}
