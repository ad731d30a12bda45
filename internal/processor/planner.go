package processor

import (
	"math"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/pkg/errors"
)

// SourceMetadata describes the input for the whole session
type SourceMetadata struct {
	Width             int
	Height            int
	DurationSeconds   float64
	OriginalSizeBytes int64
	FPS               float64
}

// OriginalBitrate is the average source bitrate in bits per second
func (m SourceMetadata) OriginalBitrate() float64 {
	if m.DurationSeconds <= 0 {
		return 0
	}
	return float64(m.OriginalSizeBytes) * 8 / m.DurationSeconds
}

// BitrateBudget holds whole bits per second. Video and audio always sum to
// the total.
type BitrateBudget struct {
	TotalBPS int64
	VideoBPS int64
	AudioBPS int64
}

// Plan derives the bitrate budget and compression ratio for fitting src
// into targetSize bytes. The budget is reused unchanged for every rung of
// the ladder.
func Plan(src SourceMetadata, targetSize int64) (BitrateBudget, float64, error) {
	if math.IsNaN(src.DurationSeconds) || math.IsInf(src.DurationSeconds, 0) || src.DurationSeconds <= 0 {
		return BitrateBudget{}, 0, errors.Wrapf(ErrInvalidBudget, "duration %v", src.DurationSeconds)
	}
	if src.OriginalSizeBytes <= 0 {
		return BitrateBudget{}, 0, errors.Wrapf(ErrInvalidBudget, "source size %d", src.OriginalSizeBytes)
	}
	if targetSize <= 0 {
		return BitrateBudget{}, 0, errors.Wrapf(ErrInvalidBudget, "target size %d", targetSize)
	}

	total := int64(math.Floor(float64(targetSize) * 8 / src.DurationSeconds * config.SafetyMargin))
	if total < 1 {
		return BitrateBudget{}, 0, errors.Wrapf(ErrInvalidBudget,
			"%d bytes over %.1fs leaves no bitrate", targetSize, src.DurationSeconds)
	}

	audio := int64(math.Floor(float64(total) * config.AudioShare))
	budget := BitrateBudget{
		TotalBPS: total,
		VideoBPS: total - audio,
		AudioBPS: audio,
	}

	ratio := float64(targetSize) / float64(src.OriginalSizeBytes)
	return budget, ratio, nil
}
