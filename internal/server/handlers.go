package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/gifmaker/internal/job"
	"github.com/maauso/gifmaker/internal/job/id"
	"github.com/maauso/gifmaker/internal/sampling"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.GifService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
	publishEnabled     bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateGif only creates the job and returns immediately
// without starting the pipeline.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithPublishing reports whether S3 publication is configured.
// Requests with push_to_s3 are rejected when it is not.
func WithPublishing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.publishEnabled = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.GifService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          newValidator(),
		logger:             logger,
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// newValidator returns a validator that also understands the "skipratio" tag.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("skipratio", func(fl validator.FieldLevel) bool {
		_, err := sampling.ParseSkipRatio(fl.Field().String())
		return err == nil
	})
	return v
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateGif handles POST /gifs requests.
func (h *Handlers) CreateGif(w http.ResponseWriter, r *http.Request) {
	var req CreateGifRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	if req.PushToS3 && !h.publishEnabled {
		writeError(w, http.StatusBadRequest, "push_to_s3 requires S3 to be configured", "S3_NOT_CONFIGURED")
		return
	}

	input := job.CreateInput{
		Video: base64.NewDecoder(base64.StdEncoding, strings.NewReader(req.VideoBase64)),
		Options: job.Options{
			Start:     req.Start,
			Duration:  req.Duration,
			Scale:     req.Scale,
			Loop:      req.Loop,
			FrameSkip: req.FrameSkip,
		},
		PushToS3: req.PushToS3,
	}

	createdJob, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		if errors.Is(err, sampling.ErrInvalidSkipRatio) {
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// The pipeline outlives the request, so it runs on a detached context.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if _, processErr := h.service.ProcessExistingJob(ctx, jobID); processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID)
	}

	h.logger.Info("job created",
		slog.String("job_id", createdJob.ID),
		slog.String("request_id", RequestIDFromContext(r.Context())),
	)

	writeJSON(w, http.StatusAccepted, CreateGifResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

// GetGif handles GET /gifs/{id} requests.
func (h *Handlers) GetGif(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathJobID(w, r)
	if !ok {
		return
	}

	foundJob, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		h.writeLookupError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(foundJob, true))
}

// ListGifs handles GET /gifs requests. Animations are not inlined.
func (h *Handlers) ListGifs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListGifsResponse{Jobs: make([]GifResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, h.toResponse(j, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteGif handles DELETE /gifs/{id} requests.
func (h *Handlers) DeleteGif(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathJobID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrJobInProgress) {
			writeError(w, http.StatusConflict, "job is still in progress", "JOB_IN_PROGRESS")
			return
		}
		h.writeLookupError(w, jobID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathJobID extracts the {id} path value. IDs that Generate could not have
// produced are answered with 404 without touching the repository.
func pathJobID(w http.ResponseWriter, r *http.Request) (string, bool) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return "", false
	}
	if !id.Valid(jobID) {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return "", false
	}
	return jobID, true
}

func (h *Handlers) writeLookupError(w http.ResponseWriter, jobID string, err error) {
	if errors.Is(err, job.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
		return
	}
	h.logger.Error("failed to get job",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
}

func (h *Handlers) toResponse(j *job.Job, inline bool) GifResponse {
	resp := GifResponse{
		ID:              j.ID,
		Status:          string(j.Status),
		Progress:        j.Progress,
		Error:           j.Error,
		FramesExtracted: j.FramesExtracted,
		FramesRetained:  j.FramesRetained,
		OutputFPS:       j.OutputFPS,
		CreatedAt:       j.CreatedAt,
	}

	if j.Status != job.StatusCompleted {
		return resp
	}

	if j.PushToS3 && j.GifURL != "" {
		resp.GifURL = j.GifURL
	} else if inline && j.OutputPath != "" {
		data, err := os.ReadFile(j.OutputPath)
		if err != nil {
			// The job stays readable without its animation.
			h.logger.Error("failed to read output gif",
				slog.String("job_id", j.ID),
				slog.String("path", j.OutputPath),
				slog.String("error", err.Error()),
			)
		} else {
			resp.GifBase64 = base64.StdEncoding.EncodeToString(data)
		}
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
