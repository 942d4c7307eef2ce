package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	// framePattern names extracted frames with a 5-digit sequence number so
	// that lexicographic order is temporal order.
	framePattern = "frame%05d.png"
	frameGlob    = "frame*.png"
)

// FFmpegExtractor implements Extractor using the ffmpeg CLI.
type FFmpegExtractor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegExtractor creates a new FFmpegExtractor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegExtractor(ffmpegPath string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath}
}

// Extract decodes the requested window of the video into outputDir.
func (e *FFmpegExtractor) Extract(ctx context.Context, meta VideoMetadata, window ExtractionWindow, outputDir string) ([]string, error) {
	args, err := extractArgs(meta, window, outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if _, err := runTool(ctx, e.ffmpegPath, args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	frames, err := ListFrames(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames written to %s", ErrExtraction, outputDir)
	}

	return frames, nil
}

// extractArgs builds the ffmpeg command line for a window. Seek and duration
// are output options so the cut is frame accurate.
func extractArgs(meta VideoMetadata, window ExtractionWindow, outputDir string) ([]string, error) {
	kwargs := ffmpeg.KwArgs{}
	if window.Start != nil {
		kwargs["ss"] = formatSeconds(*window.Start)
	}
	if window.Duration != nil {
		kwargs["t"] = formatSeconds(*window.Duration)
	}
	if window.Scale > 0 && window.Scale != 1 {
		w, h, err := ScaledSize(meta, window.Scale)
		if err != nil {
			return nil, err
		}
		kwargs["s"] = fmt.Sprintf("%dx%d", w, h)
	}

	stream := ffmpeg.Input(meta.Path).
		Output(filepath.Join(outputDir, framePattern), kwargs).
		OverWriteOutput()

	return stream.GetArgs(), nil
}

// ScaledSize multiplies the video geometry by scale, rounding each side to
// the nearest integer.
func ScaledSize(meta VideoMetadata, scale float64) (int, int, error) {
	w := int(math.Round(float64(meta.Width) * scale))
	h := int(math.Round(float64(meta.Height) * scale))
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}
	return w, h, nil
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', -1, 64)
}

// ListFrames lists the extracted frame files in dir sorted by name.
func ListFrames(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("stat frame directory: %w", err)
	}
	frames, err := filepath.Glob(filepath.Join(dir, frameGlob))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

// Verify interface implementation at compile time.
var _ Extractor = (*FFmpegExtractor)(nil)
