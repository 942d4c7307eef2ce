package media

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var (
	videoResolutionRe = regexp.MustCompile(`Video:.* (\d+)x(\d+)[, ]`)
	videoFPSRe        = regexp.MustCompile(`Video:.* ([\d.]+) fps`)
)

// FFprobeResolver implements Resolver using the ffprobe CLI.
type FFprobeResolver struct {
	ffprobePath string
}

// NewFFprobeResolver creates a new FFprobeResolver.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobeResolver(ffprobePath string) *FFprobeResolver {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeResolver{ffprobePath: ffprobePath}
}

// Resolve runs ffprobe on path and parses the stream banner it prints to stderr.
func (r *FFprobeResolver) Resolve(ctx context.Context, path string) (VideoMetadata, error) {
	// ffprobe writes the stream summary to stderr; the exit status only
	// matters when the summary cannot be parsed.
	output, runErr := runTool(ctx, r.ffprobePath, []string{"-hide_banner", path})
	if runErr != nil && ctx.Err() != nil {
		return VideoMetadata{}, fmt.Errorf("%w: %w", ErrProbe, runErr)
	}

	meta, err := parseProbeOutput(path, output)
	if err != nil {
		if runErr != nil {
			return VideoMetadata{}, fmt.Errorf("%w: %w", err, runErr)
		}
		return VideoMetadata{}, err
	}
	return meta, nil
}

// parseProbeOutput extracts the first video resolution and frame rate from
// probe output. With several video streams the first one wins.
func parseProbeOutput(path, output string) (VideoMetadata, error) {
	res := videoResolutionRe.FindStringSubmatch(output)
	if len(res) < 3 {
		return VideoMetadata{}, fmt.Errorf("%w: no video resolution found for %s", ErrProbe, path)
	}
	width, err := strconv.Atoi(res[1])
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("%w: parse width %q: %w", ErrProbe, res[1], err)
	}
	height, err := strconv.Atoi(res[2])
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("%w: parse height %q: %w", ErrProbe, res[2], err)
	}

	fps := videoFPSRe.FindStringSubmatch(output)
	if len(fps) < 2 {
		return VideoMetadata{}, fmt.Errorf("%w: no frame rate found for %s", ErrProbe, path)
	}
	rate, err := strconv.ParseFloat(fps[1], 64)
	if err != nil {
		return VideoMetadata{}, fmt.Errorf("%w: parse frame rate %q: %w", ErrProbe, fps[1], err)
	}

	return VideoMetadata{
		Path:   path,
		Width:  width,
		Height: height,
		FPS:    int(math.Round(rate)),
	}, nil
}

// Verify interface implementation at compile time.
var _ Resolver = (*FFprobeResolver)(nil)
