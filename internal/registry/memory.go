package registry

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses maps with an RWMutex for thread-safe access.
// Suitable for development and testing; swap for the gorm-backed
// repository in production.
type MemoryRepository struct {
	mu       sync.RWMutex
	voices   map[string]*VoiceSample
	passages map[string]*PassageSample
}

// NewMemoryRepository creates a new in-memory registry repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		voices:   make(map[string]*VoiceSample),
		passages: make(map[string]*PassageSample),
	}
}

// SaveVoice persists a voice sample to the in-memory storage.
func (r *MemoryRepository) SaveVoice(_ context.Context, v *VoiceSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *v
	r.voices[v.ID] = &clone
	return nil
}

// FindVoiceByID retrieves a voice sample by id.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindVoiceByID(_ context.Context, id string) (*VoiceSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.voices[id]
	if !ok {
		return nil, ErrVoiceNotFound
	}
	clone := *v
	return &clone, nil
}

// ListVoices returns all voice samples.
func (r *MemoryRepository) ListVoices(_ context.Context) ([]*VoiceSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*VoiceSample, 0, len(r.voices))
	for _, v := range r.voices {
		clone := *v
		result = append(result, &clone)
	}
	return result, nil
}

// SavePassage persists a passage and its paragraphs.
func (r *MemoryRepository) SavePassage(_ context.Context, p *PassageSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passages[p.ID] = p.Clone()
	return nil
}

// FindPassageByID retrieves a passage by id.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindPassageByID(_ context.Context, id string) (*PassageSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.passages[id]
	if !ok {
		return nil, ErrPassageNotFound
	}
	return p.Clone(), nil
}

// UpdateParagraphAudio sets the synthesized-output blob id on one paragraph.
func (r *MemoryRepository) UpdateParagraphAudio(_ context.Context, passageID string, order int, blobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.passages[passageID]
	if !ok {
		return ErrPassageNotFound
	}
	for i := range p.Paragraphs {
		if p.Paragraphs[i].Order == order {
			p.Paragraphs[i].AudioFileID = blobID
			break
		}
	}
	return nil
}
