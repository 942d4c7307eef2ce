// Package media wraps the external tools that probe videos, decode frames
// and assemble animated images.
package media

import "context"

// VideoMetadata is the geometry and frame rate of a source video.
type VideoMetadata struct {
	Path   string
	Width  int
	Height int
	// FPS is the probed frame rate rounded half away from zero.
	FPS int
}

// ExtractionWindow selects the part of the video to decode.
type ExtractionWindow struct {
	// Start is the offset in seconds. Nil means the beginning.
	Start *float64
	// Duration is the length in seconds. Nil means until the end.
	Duration *float64
	// Scale multiplies width and height. Zero or one keeps the source size.
	Scale float64
}

// Resolver reads video metadata.
type Resolver interface {
	// Resolve probes the video at path and returns its geometry and frame rate.
	// Returns an error wrapping ErrProbe if the probe output is not recognized.
	Resolve(ctx context.Context, path string) (VideoMetadata, error)
}

// Extractor decodes a video into numbered still images.
type Extractor interface {
	// Extract writes one image per source frame of the window into outputDir
	// and returns the files sorted in temporal order.
	// Returns an error wrapping ErrExtraction if no frames were produced.
	Extract(ctx context.Context, meta VideoMetadata, window ExtractionWindow, outputDir string) ([]string, error)
}

// Assembler encodes still images into an animated image.
type Assembler interface {
	// Assemble writes frames to outputPath as an animation shown at fps,
	// looping forever when loop is set.
	// Returns an error wrapping ErrAssembly on failure; outputPath is left
	// untouched in that case.
	Assemble(ctx context.Context, frames []string, fps int, loop bool, outputPath string) error
}
