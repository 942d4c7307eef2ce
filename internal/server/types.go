// Package server provides the HTTP surface of the GIF service.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateGifRequest is the HTTP request body for a new conversion.
type CreateGifRequest struct {
	// VideoBase64 is the base64-encoded source video.
	VideoBase64 string `json:"video_base64" validate:"required,base64"`
	// Start is the offset in seconds where extraction begins.
	Start *float64 `json:"start,omitempty" validate:"omitempty,gte=0"`
	// Duration is the length in seconds of the extracted clip.
	Duration *float64 `json:"duration,omitempty" validate:"omitempty,gt=0"`
	// Loop makes the animation repeat forever.
	Loop bool `json:"loop"`
	// Scale multiplies the frame size; 0 keeps the native size.
	Scale float64 `json:"scale,omitempty" validate:"gte=0,lte=10"`
	// FrameSkip drops A of every B frames, written "A/B".
	FrameSkip string `json:"frameskip,omitempty" validate:"omitempty,skipratio"`
	// PushToS3 indicates whether to upload the GIF to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateGifResponse is the HTTP response after creating a job.
type CreateGifResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// GifResponse is the HTTP response for getting job details.
type GifResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	// Error names the failed stage and its cause.
	Error           string `json:"error,omitempty"`
	FramesExtracted int    `json:"frames_extracted,omitempty"`
	FramesRetained  int    `json:"frames_retained,omitempty"`
	OutputFPS       int    `json:"output_fps,omitempty"`
	// GifBase64 is the base64-encoded animation (if push_to_s3=false and completed).
	GifBase64 string `json:"gif_base64,omitempty"`
	// GifURL is the S3 URL of the animation (if push_to_s3=true and completed).
	GifURL    string    `json:"gif_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListGifsResponse is the HTTP response for listing jobs.
type ListGifsResponse struct {
	Jobs []GifResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
