// Package server provides the HTTP surface of the voice pipeline.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "github.com/Aneek02/voice/internal/registry"

// CloneResponse is the HTTP response for a successful whole-passage clone.
type CloneResponse struct {
	// Message is the human-readable result summary.
	Message string `json:"message"`
	// AudioURL is the path of the produced artifact under /voice.
	AudioURL string `json:"audioUrl"`
	// Sample is the persisted voice sample record; absent when the record
	// write failed after synthesis succeeded.
	Sample *registry.VoiceSample `json:"sample,omitempty"`
	// Warning is set when the artifact exists but was not recorded.
	Warning string `json:"warning,omitempty"`
}

// VoiceResponse is the HTTP response after registering a voice sample.
type VoiceResponse struct {
	Message string                `json:"message"`
	Sample  *registry.VoiceSample `json:"sample"`
}

// CreatePassageRequest is the HTTP request body for storing a passage.
type CreatePassageRequest struct {
	// Title is an optional display title.
	Title string `json:"title"`
	// Text is the passage body; blank lines separate paragraphs.
	Text string `json:"text" validate:"required"`
}

// AssignmentRequest binds one paragraph order to a voice sample id.
type AssignmentRequest struct {
	ParagraphOrder int    `json:"paragraphOrder" validate:"required,min=1"`
	VoiceID        string `json:"voiceId" validate:"required"`
}

// AssignVoicesRequest is the HTTP request body for voice assignment.
type AssignVoicesRequest struct {
	Assignments []AssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
}

// PassageResponse is the HTTP response carrying a passage document.
type PassageResponse struct {
	Message string                  `json:"message"`
	Passage *registry.PassageSample `json:"passage"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the stable, human-readable error message. Diagnostic
	// detail stays in the server logs.
	Error string `json:"error"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
