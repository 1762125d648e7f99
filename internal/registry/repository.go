package registry

import (
	"context"
	"errors"
)

// ErrVoiceNotFound is returned when a voice sample cannot be found by ID.
var ErrVoiceNotFound = errors.New("voice sample not found")

// ErrPassageNotFound is returned when a passage cannot be found by ID.
var ErrPassageNotFound = errors.New("passage not found")

// Repository defines the interface for registry persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// SaveVoice persists a voice sample. Existing samples are updated.
	SaveVoice(ctx context.Context, v *VoiceSample) error

	// FindVoiceByID retrieves a voice sample by id.
	// Returns ErrVoiceNotFound if it does not exist.
	FindVoiceByID(ctx context.Context, id string) (*VoiceSample, error)

	// ListVoices returns all voice samples.
	ListVoices(ctx context.Context) ([]*VoiceSample, error)

	// SavePassage persists a passage and its paragraphs.
	// Existing passages are updated.
	SavePassage(ctx context.Context, p *PassageSample) error

	// FindPassageByID retrieves a passage with its paragraphs in order.
	// Returns ErrPassageNotFound if it does not exist.
	FindPassageByID(ctx context.Context, id string) (*PassageSample, error)

	// UpdateParagraphAudio sets the synthesized-output blob id on one
	// paragraph. Returns ErrPassageNotFound if the passage is unknown;
	// an unknown paragraph order is a no-op.
	UpdateParagraphAudio(ctx context.Context, passageID string, order int, blobID string) error
}
