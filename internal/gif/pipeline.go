// Package gif runs the video-to-animation pipeline: probe, extract,
// sample and assemble, strictly in sequence.
package gif

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/gifmaker/internal/media"
	"github.com/maauso/gifmaker/internal/metrics"
	"github.com/maauso/gifmaker/internal/sampling"
	"github.com/maauso/gifmaker/internal/storage"
)

// Request describes one conversion.
type Request struct {
	// Input is the source video path.
	Input string `validate:"required"`
	// Output is the destination image path.
	Output string `validate:"required,nefield=Input"`
	// Window selects and scales the decoded part of the video.
	Window Window
	// Loop makes the animation repeat forever.
	Loop bool
	// SkipRatio drops source frames. The zero value keeps them all.
	SkipRatio sampling.SkipRatio
	// PublishKey uploads the result under this key when set.
	PublishKey string
}

// Window carries the validated form of media.ExtractionWindow.
type Window struct {
	Start    *float64 `validate:"omitempty,gte=0"`
	Duration *float64 `validate:"omitempty,gt=0"`
	Scale    float64  `validate:"gte=0"`
}

func (w Window) extraction() media.ExtractionWindow {
	return media.ExtractionWindow{Start: w.Start, Duration: w.Duration, Scale: w.Scale}
}

// Result summarizes a successful run.
type Result struct {
	Metadata        media.VideoMetadata
	FramesExtracted int
	Plan            sampling.Plan
	// Delay is the per-frame display time in hundredths of a second.
	Delay  int
	Output string
	// URL is set when the result was published.
	URL string
}

// Pipeline converts videos into animated images.
type Pipeline struct {
	resolver  media.Resolver
	extractor media.Extractor
	assembler media.Assembler
	store     storage.Storage
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	resolver media.Resolver,
	extractor media.Extractor,
	assembler media.Assembler,
	store storage.Storage,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver:  resolver,
		extractor: extractor,
		assembler: assembler,
		store:     store,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Validate checks a request before any external tool runs.
func (p *Pipeline) Validate(req Request) error {
	if err := p.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.SkipRatio.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Run executes the pipeline for req. The scratch directory holding the
// extracted frames is removed on every return path.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(FailedStage(err))
		}
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}()

	if err := p.Validate(req); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}

	log := p.logger.With(slog.String("input", req.Input), slog.String("output", req.Output))
	res = &Result{Output: req.Output}

	log.Info("extracting video data")
	err = p.timed(StageProbe, func() error {
		var err error
		res.Metadata, err = p.resolver.Resolve(ctx, req.Input)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info("video data",
		slog.Int("width", res.Metadata.Width),
		slog.Int("height", res.Metadata.Height),
		slog.Int("fps", res.Metadata.FPS),
	)

	dir, err := p.store.MakeScratchDir(ctx, "frames")
	if err != nil {
		return nil, &StageError{Stage: StageScratch, Err: err}
	}
	log.Debug("scratch directory created", slog.String("dir", dir))
	defer func() {
		// Cleanup must run even when ctx is already done.
		if rmErr := p.store.RemoveScratchDir(context.WithoutCancel(ctx), dir); rmErr != nil {
			log.Warn("failed to remove scratch directory",
				slog.String("dir", dir),
				slog.String("error", rmErr.Error()),
			)
		}
	}()

	log.Info("extracting frames")
	var frames []string
	err = p.timed(StageExtract, func() error {
		var err error
		frames, err = p.extractor.Extract(ctx, res.Metadata, req.Window.extraction(), dir)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.FramesExtracted = len(frames)
	metrics.FramesExtractedTotal.Add(float64(len(frames)))
	log.Info("frames extracted", slog.Int("count", len(frames)))

	err = p.timed(StageSample, func() error {
		var err error
		res.Plan, err = sampling.Sample(res.Metadata.FPS, len(frames), sampling.WithSkipRatio(req.SkipRatio))
		return err
	})
	if err != nil {
		return nil, err
	}
	retained := sampling.Select(frames, res.Plan)
	res.Delay = media.Delay(res.Plan.OutputFPS)
	metrics.FramesRetainedTotal.Add(float64(len(retained)))
	log.Info("frames sampled",
		slog.Int("retained", len(retained)),
		slog.String("frameskip", req.SkipRatio.String()),
		slog.Int("output_fps", res.Plan.OutputFPS),
		slog.Int("delay", res.Delay),
	)

	log.Info("making output gif", slog.Bool("loop", req.Loop))
	err = p.timed(StageAssemble, func() error {
		return p.assembler.Assemble(ctx, retained, res.Plan.OutputFPS, req.Loop, req.Output)
	})
	if err != nil {
		return nil, err
	}

	if req.PublishKey != "" {
		err = p.timed(StagePublish, func() error {
			var err error
			res.URL, err = p.publish(ctx, req.Output, req.PublishKey)
			return err
		})
		if err != nil {
			return nil, err
		}
		log.Info("gif published", slog.String("url", res.URL))
	}

	log.Info("done")
	return res, nil
}

func (p *Pipeline) publish(ctx context.Context, path, key string) (string, error) {
	f, err := p.store.LoadTemp(ctx, path)
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer func() { _ = f.Close() }()

	return p.store.Publish(ctx, key, f)
}

// timed runs fn, records its duration for stage and tags any error with the stage.
func (p *Pipeline) timed(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}
