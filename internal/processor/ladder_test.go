package processor

import (
	"reflect"
	"testing"
)

func TestStartIndex(t *testing.T) {
	tests := []struct {
		ratio      float64
		wantHeight int
	}{
		{0.05, 480},
		{0.09, 480},
		{0.10, 720},
		{0.11, 720},
		{0.25, 720},
		{0.29, 720},
		{0.30, 1080},
		{0.31, 1080},
		{0.9, 1080},
		{2.0, 1080},
	}

	// 4:3 keeps every rung height exact
	src := SourceMetadata{Width: 1440, Height: 1080}
	for _, tt := range tests {
		cands := Candidates(src, tt.ratio)
		if len(cands) == 0 {
			t.Fatalf("ratio %v: no candidates", tt.ratio)
		}
		if cands[0].Height != tt.wantHeight {
			t.Errorf("ratio %v: first candidate %s, want height %d", tt.ratio, cands[0], tt.wantHeight)
		}
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name  string
		src   SourceMetadata
		ratio float64
		want  []Candidate
	}{
		{
			name:  "1080p full ladder",
			src:   SourceMetadata{Width: 1920, Height: 1080},
			ratio: 0.5,
			want: []Candidate{
				{1920, 1080}, {1280, 720}, {1024, 576}, {848, 478}, {640, 360}, {422, 238},
			},
		},
		{
			name:  "1080p tiny budget",
			src:   SourceMetadata{Width: 1920, Height: 1080},
			ratio: 0.05,
			want:  []Candidate{{848, 478}, {640, 360}, {422, 238}},
		},
		{
			name:  "720p source collapses the top rungs",
			src:   SourceMetadata{Width: 1280, Height: 720},
			ratio: 0.9,
			want: []Candidate{
				{1280, 720}, {1024, 576}, {848, 478}, {640, 360}, {422, 238},
			},
		},
		{
			name:  "portrait",
			src:   SourceMetadata{Width: 1080, Height: 1920},
			ratio: 0.2,
			want: []Candidate{
				{404, 718}, {324, 576}, {270, 480}, {202, 358}, {134, 238},
			},
		},
		{
			name:  "source below every rung",
			src:   SourceMetadata{Width: 320, Height: 240},
			ratio: 0.9,
			want:  []Candidate{{320, 240}},
		},
		{
			name:  "odd source dimensions",
			src:   SourceMetadata{Width: 641, Height: 361},
			ratio: 0.9,
			want:  []Candidate{{638, 360}, {634, 358}, {422, 238}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(tt.src, tt.ratio)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDimensionsEvenAndNeverUpscaled(t *testing.T) {
	widths := []int{2, 3, 97, 320, 640, 719, 720, 1079, 1080, 1280, 1920, 2560, 3840}
	heights := []int{2, 5, 144, 240, 359, 480, 576, 720, 1081, 1920, 2160}
	ladder := []int{1080, 720, 576, 480, 360, 240}

	for _, w := range widths {
		for _, h := range heights {
			src := SourceMetadata{Width: w, Height: h}
			for _, rung := range ladder {
				c := Dimensions(src, rung)
				if c.Width%2 != 0 || c.Height%2 != 0 {
					t.Errorf("Dimensions(%dx%d, %d) = %s, want even sides", w, h, rung, c)
				}
				if c.Width > max(w, 2) || c.Height > max(h, 2) {
					t.Errorf("Dimensions(%dx%d, %d) = %s, exceeds source", w, h, rung, c)
				}
				if c.Width < 2 || c.Height < 2 {
					t.Errorf("Dimensions(%dx%d, %d) = %s, below 2px", w, h, rung, c)
				}
			}
		}
	}
}

func TestLadderIsSingleUse(t *testing.T) {
	l := NewLadder(SourceMetadata{Width: 1920, Height: 1080}, 0.05)
	n := 0
	for {
		if _, ok := l.Next(); !ok {
			break
		}
		n++
	}
	if n != 3 {
		t.Fatalf("walked %d candidates, want 3", n)
	}
	if _, ok := l.Next(); ok {
		t.Error("Next() after exhaustion returned a candidate")
	}
}
