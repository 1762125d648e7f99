package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyPassage is returned when passage text contains no paragraphs.
var ErrEmptyPassage = errors.New("passage text is empty")

// Assignment binds one paragraph order to a voice sample id.
type Assignment struct {
	ParagraphOrder int
	VoiceID        string
}

// Service exposes the registry operations used by the HTTP layer and the
// job orchestrator.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a registry Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateVoice registers a new named voice sample referencing an already
// persisted audio blob. Name defaults to "Unnamed" and language to "en".
func (s *Service) CreateVoice(ctx context.Context, name, language, blobID string) (*VoiceSample, error) {
	if name == "" {
		name = "Unnamed"
	}
	if language == "" {
		language = "en"
	}

	now := time.Now()
	v := &VoiceSample{
		ID:          uuid.NewString(),
		Name:        name,
		Language:    language,
		AudioFileID: blobID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.SaveVoice(ctx, v); err != nil {
		return nil, fmt.Errorf("create voice: %w", err)
	}
	return v, nil
}

// RecordClone registers the voice sample produced by a whole-passage clone
// job, carrying the legacy passage/voiceMap payloads.
func (s *Service) RecordClone(ctx context.Context, passage string, voiceMap VoiceMap, blobID string) (*VoiceSample, error) {
	now := time.Now()
	v := &VoiceSample{
		ID:          uuid.NewString(),
		Name:        "Unnamed",
		Language:    "en",
		AudioFileID: blobID,
		Passage:     passage,
		VoiceMap:    voiceMap,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.SaveVoice(ctx, v); err != nil {
		return nil, fmt.Errorf("record clone: %w", err)
	}
	return v, nil
}

// ListVoices returns public summaries of all voice samples, oldest first.
// The legacy passage/voiceMap payloads are never included.
func (s *Service) ListVoices(ctx context.Context) ([]VoiceSummary, error) {
	voices, err := s.repo.ListVoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}

	summaries := make([]VoiceSummary, 0, len(voices))
	for _, v := range voices {
		summaries = append(summaries, v.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// CreatePassage splits text on blank-line boundaries into ordered
// paragraphs and persists the passage.
func (s *Service) CreatePassage(ctx context.Context, title, text string) (*PassageSample, error) {
	paragraphs := SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, ErrEmptyPassage
	}

	p := &PassageSample{
		ID:         uuid.NewString(),
		Title:      title,
		Paragraphs: paragraphs,
		CreatedAt:  time.Now(),
	}
	for i := range p.Paragraphs {
		p.Paragraphs[i].PassageID = p.ID
	}

	if err := s.repo.SavePassage(ctx, p); err != nil {
		return nil, fmt.Errorf("create passage: %w", err)
	}
	return p, nil
}

// GetPassage retrieves a passage by id.
func (s *Service) GetPassage(ctx context.Context, id string) (*PassageSample, error) {
	return s.repo.FindPassageByID(ctx, id)
}

// AssignVoices applies paragraph-to-voice assignments to a passage.
// An unknown passage or voice id fails with the corresponding not-found
// error; an assignment naming a paragraph order that does not exist is a
// no-op, not an error.
func (s *Service) AssignVoices(ctx context.Context, passageID string, assignments []Assignment) (*PassageSample, error) {
	p, err := s.repo.FindPassageByID(ctx, passageID)
	if err != nil {
		return nil, err
	}

	for _, a := range assignments {
		if _, err := s.repo.FindVoiceByID(ctx, a.VoiceID); err != nil {
			return nil, err
		}
		for i := range p.Paragraphs {
			if p.Paragraphs[i].Order == a.ParagraphOrder {
				p.Paragraphs[i].VoiceID = a.VoiceID
				break
			}
		}
	}

	if err := s.repo.SavePassage(ctx, p); err != nil {
		return nil, fmt.Errorf("save assignments: %w", err)
	}
	return p, nil
}

// GetPassageWithVoices retrieves a passage and resolves the voice samples
// its paragraphs reference. A paragraph referencing a voice that no longer
// exists is treated as unassigned.
func (s *Service) GetPassageWithVoices(ctx context.Context, passageID string) (*ResolvedPassage, error) {
	p, err := s.repo.FindPassageByID(ctx, passageID)
	if err != nil {
		return nil, err
	}

	voices := make(map[string]*VoiceSample)
	for _, para := range p.Paragraphs {
		if para.VoiceID == "" {
			continue
		}
		if _, ok := voices[para.VoiceID]; ok {
			continue
		}
		v, err := s.repo.FindVoiceByID(ctx, para.VoiceID)
		if err != nil {
			if errors.Is(err, ErrVoiceNotFound) {
				s.logger.Warn("paragraph references missing voice",
					slog.String("passage_id", passageID),
					slog.Int("paragraph", para.Order),
					slog.String("voice_id", para.VoiceID),
				)
				continue
			}
			return nil, err
		}
		voices[para.VoiceID] = v
	}

	return &ResolvedPassage{Passage: p, Voices: voices}, nil
}

// SetParagraphAudio records a paragraph's synthesized-output blob id.
func (s *Service) SetParagraphAudio(ctx context.Context, passageID string, order int, blobID string) error {
	return s.repo.UpdateParagraphAudio(ctx, passageID, order, blobID)
}
