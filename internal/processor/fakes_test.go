package processor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ZacxDev/shrinkvid/internal/ffmpeg"
	"github.com/pkg/errors"
)

type fakeProber struct {
	md    ffmpeg.VideoMetadata
	err   error
	calls int
}

func (p *fakeProber) GetVideoMetadata(ctx context.Context, inputPath string) (*ffmpeg.VideoMetadata, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	md := p.md
	return &md, nil
}

// fakeEncoder writes an output whose size is chosen by sizeFor. When fail
// returns a non-nil error nothing is written (or a partial file, if
// partial is set) and that error is returned.
type fakeEncoder struct {
	mu      sync.Mutex
	jobs    []ffmpeg.EncodeJob
	sizeFor func(job ffmpeg.EncodeJob) int64
	fail    func(ctx context.Context, job ffmpeg.EncodeJob) error
	partial bool
}

func (e *fakeEncoder) Encode(ctx context.Context, job ffmpeg.EncodeJob) error {
	e.mu.Lock()
	e.jobs = append(e.jobs, job)
	e.mu.Unlock()

	if e.fail != nil {
		if err := e.fail(ctx, job); err != nil {
			if e.partial {
				_ = writeSized(job.OutputPath, 128)
			}
			return err
		}
	}

	size := int64(1024)
	if e.sizeFor != nil {
		size = e.sizeFor(job)
	}
	return writeSized(job.OutputPath, size)
}

type encoderFunc func(ctx context.Context, job ffmpeg.EncodeJob) error

func (f encoderFunc) Encode(ctx context.Context, job ffmpeg.EncodeJob) error {
	return f(ctx, job)
}

func (e *fakeEncoder) heights() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, j.Height)
	}
	return out
}

// sizeByHeight makes output size proportional to the encoded height
func sizeByHeight(bytesPerLine int64) func(ffmpeg.EncodeJob) int64 {
	return func(job ffmpeg.EncodeJob) int64 {
		return int64(job.Height) * bytesPerLine
	}
}

func writeSized(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func makeSource(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := writeSized(path, size); err != nil {
		t.Fatalf("create source: %v", err)
	}
	return path
}

// tempArtifacts lists leftover scratch files in dir
func tempArtifacts(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*_temp.*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

var errEncoderCrashed = errors.New("exit status 1")

type statusRecorder struct {
	mu    sync.Mutex
	lines []Status
}

func (r *statusRecorder) sink(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, s)
}

func (r *statusRecorder) has(level Level, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.lines {
		if s.Level == level && s.Message == message {
			return true
		}
	}
	return false
}
