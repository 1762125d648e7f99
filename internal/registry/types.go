// Package registry provides the passage/voice data model and its
// persistence. It holds VoiceSample and PassageSample aggregates and the
// paragraph-to-voice assignment operations; audio bytes live in the blob
// store and are referenced by id only.
package registry

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// VoiceMapEntry describes the voice selection for one paragraph slot in a
// legacy voice map.
type VoiceMapEntry struct {
	Lang  string `json:"lang"`
	Voice string `json:"voice"`
}

// VoiceMap maps a paragraph number (as a string key) to its voice selection.
// Retained for backward compatibility with the whole-passage clone flow.
type VoiceMap map[string]VoiceMapEntry

// Value serializes the map to JSON for storage in a text column.
func (m VoiceMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal voice map: %w", err)
	}
	return string(b), nil
}

// Scan deserializes the map from its JSON text column.
func (m *VoiceMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported voice map column type %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// VoiceSample is a named, owned audio artifact. AudioFileID references the
// blob store and is immutable once set. Passage and VoiceMap are legacy
// fields written by the whole-passage clone flow.
type VoiceSample struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name"`
	Language    string    `json:"language" gorm:"size:16"`
	AudioFileID string    `json:"audioFileId" gorm:"size:36"`
	Passage     string    `json:"passage,omitempty" gorm:"type:text"`
	VoiceMap    VoiceMap  `json:"voiceMap,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VoiceSummary is the public projection of a VoiceSample. It must never
// carry the legacy Passage/VoiceMap payloads.
type VoiceSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary returns the public projection of the sample.
func (v *VoiceSample) Summary() VoiceSummary {
	return VoiceSummary{
		ID:        v.ID,
		Name:      v.Name,
		Language:  v.Language,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// Paragraph is an ordered unit of passage text eligible for independent
// voice assignment and synthesis. Order is a dense 1-based index fixed at
// passage creation. AudioFileID is set once synthesis succeeds for the
// paragraph.
type Paragraph struct {
	PassageID   string `json:"-" gorm:"primaryKey;size:36"`
	Order       int    `json:"order" gorm:"primaryKey;column:ord"`
	Text        string `json:"text" gorm:"type:text"`
	VoiceID     string `json:"voice,omitempty" gorm:"size:36"`
	AudioFileID string `json:"audioFileId,omitempty" gorm:"size:36"`
}

// PassageSample is an ordered document to be synthesized. Paragraphs are
// exclusively owned and do not outlive their passage.
type PassageSample struct {
	ID         string      `json:"id" gorm:"primaryKey;size:36"`
	Title      string      `json:"title"`
	Paragraphs []Paragraph `json:"paragraphs" gorm:"foreignKey:PassageID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Clone creates a deep copy of the passage for safe reads.
func (p *PassageSample) Clone() *PassageSample {
	paragraphs := make([]Paragraph, len(p.Paragraphs))
	copy(paragraphs, p.Paragraphs)
	return &PassageSample{
		ID:         p.ID,
		Title:      p.Title,
		Paragraphs: paragraphs,
		CreatedAt:  p.CreatedAt,
	}
}

// paragraphSep matches blank-line boundaries between paragraphs.
var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits text on blank-line boundaries into ordered
// paragraphs. Order values are dense, 1-based, and reflect document order.
// Whitespace-only fragments are dropped.
func SplitParagraphs(text string) []Paragraph {
	var paragraphs []Paragraph
	for _, part := range paragraphSep.Split(text, -1) {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		paragraphs = append(paragraphs, Paragraph{
			Order: len(paragraphs) + 1,
			Text:  trimmed,
		})
	}
	return paragraphs
}

// ResolvedPassage pairs a passage with the voice samples its paragraphs
// reference, keyed by voice id.
type ResolvedPassage struct {
	Passage *PassageSample
	Voices  map[string]*VoiceSample
}

// VoiceFor returns the voice assigned to the paragraph, or nil if the
// paragraph has no assignment.
func (r *ResolvedPassage) VoiceFor(p Paragraph) *VoiceSample {
	if p.VoiceID == "" {
		return nil
	}
	return r.Voices[p.VoiceID]
}
