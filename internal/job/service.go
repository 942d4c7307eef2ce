package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/maauso/gifmaker/internal/gif"
	"github.com/maauso/gifmaker/internal/metrics"
	"github.com/maauso/gifmaker/internal/sampling"
	"github.com/maauso/gifmaker/internal/storage"
)

// ErrJobInProgress is returned when deleting a job that has not finished.
var ErrJobInProgress = errors.New("job is still in progress")

// Runner executes one conversion. *gif.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req gif.Request) (*gif.Result, error)
}

// CreateInput contains the parameters of a new conversion job.
type CreateInput struct {
	// Video is the source video content.
	Video io.Reader
	// Options are the conversion parameters.
	Options Options
	// PushToS3 indicates whether to upload the finished GIF to S3.
	PushToS3 bool
}

// GifService runs conversion jobs on top of the pipeline.
// Each job runs its own sequential pipeline; jobs only share the repository.
type GifService struct {
	repo    Repository
	runner  Runner
	store   storage.Storage
	logger  *slog.Logger
	timeout time.Duration
}

// ServiceOption configures a GifService.
type ServiceOption func(*GifService)

// WithTimeout bounds each pipeline run. Zero means no limit.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *GifService) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// NewGifService creates a new GifService.
func NewGifService(repo Repository, runner Runner, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *GifService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &GifService{
		repo:   repo,
		runner: runner,
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob stores the uploaded video and persists a job in IN_QUEUE status.
// A malformed frame skip ratio is rejected before anything is stored.
func (s *GifService) CreateJob(ctx context.Context, input CreateInput) (*Job, error) {
	if _, err := sampling.ParseSkipRatio(input.Options.FrameSkip); err != nil {
		return nil, err
	}

	job := New()
	job.Options = input.Options
	job.PushToS3 = input.PushToS3

	path, err := s.store.SaveTemp(ctx, job.ID+"_input", input.Video)
	if err != nil {
		return nil, fmt.Errorf("save input video: %w", err)
	}
	job.InputVideoPath = path

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("frameskip", input.Options.FrameSkip),
		slog.Bool("loop", input.Options.Loop),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		_ = s.store.CleanupTemp(context.WithoutCancel(ctx), []string{path})
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job.Clone(), nil
}

// GetJob retrieves a job by ID.
func (s *GifService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, oldest first.
func (s *GifService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes a finished job and its GIF file.
func (s *GifService) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return ErrJobInProgress
	}

	if job.OutputPath != "" {
		if err := s.store.CleanupTemp(ctx, []string{job.OutputPath}); err != nil {
			return fmt.Errorf("remove output: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

// ProcessExistingJob runs the pipeline for a job created by CreateJob and
// records the outcome. The uploaded video is removed afterwards.
func (s *GifService) ProcessExistingJob(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(slog.String("job_id", job.ID))

	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job: %w", err)
	}
	job.UpdateProgress(10)
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	defer func() {
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), []string{job.InputVideoPath}); err != nil {
			log.Warn("failed to remove input video", slog.String("error", err.Error()))
		}
	}()

	req, err := s.buildRequest(ctx, job)
	if err != nil {
		return s.fail(ctx, log, job, err)
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.runner.Run(runCtx, req)
	if err != nil {
		_ = s.store.CleanupTemp(context.WithoutCancel(ctx), []string{req.Output})
		return s.fail(ctx, log, job, err)
	}

	job.SetResult(res.Output, res.URL, res.FramesExtracted, len(res.Plan.Retained), res.Plan.OutputFPS)
	if err := job.Complete(); err != nil {
		return nil, fmt.Errorf("complete job: %w", err)
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}

	metrics.JobsFinishedTotal.WithLabelValues(string(StatusCompleted)).Inc()
	log.Info("job completed",
		slog.Int("frames_retained", job.FramesRetained),
		slog.Int("output_fps", job.OutputFPS),
	)
	return job.Clone(), nil
}

// buildRequest turns the job options into a pipeline request and reserves
// the output file.
func (s *GifService) buildRequest(ctx context.Context, job *Job) (gif.Request, error) {
	ratio, err := sampling.ParseSkipRatio(job.Options.FrameSkip)
	if err != nil {
		return gif.Request{}, err
	}

	output, err := s.store.SaveTemp(ctx, job.ID+".gif", strings.NewReader(""))
	if err != nil {
		return gif.Request{}, fmt.Errorf("reserve output: %w", err)
	}

	req := gif.Request{
		Input:  job.InputVideoPath,
		Output: output,
		Window: gif.Window{
			Start:    job.Options.Start,
			Duration: job.Options.Duration,
			Scale:    job.Options.Scale,
		},
		Loop:      job.Options.Loop,
		SkipRatio: ratio,
	}
	if job.PushToS3 {
		req.PublishKey = "gifs/" + job.ID + ".gif"
	}
	return req, nil
}

func (s *GifService) fail(ctx context.Context, log *slog.Logger, job *Job, cause error) (*Job, error) {
	var transitionErr error
	if errors.Is(cause, context.DeadlineExceeded) {
		transitionErr = job.Timeout(cause.Error())
	} else {
		transitionErr = job.Fail(cause.Error())
	}
	if transitionErr != nil {
		return nil, fmt.Errorf("record failure: %w", transitionErr)
	}

	metrics.JobsFinishedTotal.WithLabelValues(string(job.GetStatus())).Inc()
	if err := s.repo.Save(ctx, job); err != nil {
		log.Error("failed to save failed job", slog.String("error", err.Error()))
	}

	log.Error("job failed",
		slog.String("stage", string(gif.FailedStage(cause))),
		slog.String("error", cause.Error()),
	)
	return job.Clone(), cause
}
