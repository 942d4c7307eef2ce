// Package job provides the Job aggregate for asynchronous GIF conversions
// requested over HTTP, its state machine and repository.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/gifmaker/internal/job/id"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is running.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the animation was produced.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates a pipeline stage failed.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates the pipeline exceeded the configured tool timeout.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusTimedOut:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Options are the conversion parameters of a job.
type Options struct {
	Start     *float64
	Duration  *float64
	Scale     float64
	Loop      bool
	FrameSkip string
}

// Job represents one video-to-GIF conversion.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// Options holds the requested conversion parameters.
	Options Options
	// Progress is the percentage of completion (0-100).
	Progress int
	// Error contains the failure message, naming the failed stage.
	Error string
	// InputVideoPath is the path to the uploaded source video.
	InputVideoPath string
	// OutputPath is the path to the finished GIF.
	OutputPath string
	// PushToS3 indicates whether to upload the result to S3.
	PushToS3 bool
	// GifURL is the S3 URL if PushToS3 was true.
	GifURL string
	// FramesExtracted is the number of decoded source frames.
	FramesExtracted int
	// FramesRetained is the number of frames in the animation.
	FramesRetained int
	// OutputFPS is the animation frame rate.
	OutputFPS int
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted:
		j.Progress = 100
		j.CompletedAt = j.UpdatedAt
	case StatusFailed, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	return j.failWith(StatusFailed, errMsg)
}

// Timeout transitions the job to TIMED_OUT state with an error message.
func (j *Job) Timeout(errMsg string) error {
	return j.failWith(StatusTimedOut, errMsg)
}

func (j *Job) failWith(status Status, errMsg string) error {
	if err := j.TransitionTo(status); err != nil {
		return err
	}
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return nil
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// UpdateProgress sets the progress percentage (0-100).
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
}

// SetResult records the outcome of a successful pipeline run.
func (j *Job) SetResult(outputPath, gifURL string, extracted, retained, fps int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = outputPath
	j.GifURL = gifURL
	j.FramesExtracted = extracted
	j.FramesRetained = retained
	j.OutputFPS = fps
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	opts := j.Options
	if opts.Start != nil {
		v := *opts.Start
		opts.Start = &v
	}
	if opts.Duration != nil {
		v := *opts.Duration
		opts.Duration = &v
	}

	return &Job{
		ID:              j.ID,
		Status:          j.Status,
		Options:         opts,
		Progress:        j.Progress,
		Error:           j.Error,
		InputVideoPath:  j.InputVideoPath,
		OutputPath:      j.OutputPath,
		PushToS3:        j.PushToS3,
		GifURL:          j.GifURL,
		FramesExtracted: j.FramesExtracted,
		FramesRetained:  j.FramesRetained,
		OutputFPS:       j.OutputFPS,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
	}
}
