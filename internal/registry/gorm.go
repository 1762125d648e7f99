package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Compile-time check that GormRepository implements Repository.
var _ Repository = (*GormRepository)(nil)

// OpenDB opens (and creates if needed) the sqlite document store at path.
// The driver is pure Go, so no cgo toolchain is required.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	return db, nil
}

// GormRepository is the durable implementation of Repository backed by a
// gorm-managed sqlite database. The handle is injected at construction;
// lifecycle (open at start, close at shutdown) belongs to the caller.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a GormRepository and migrates the schema.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&VoiceSample{}, &PassageSample{}, &Paragraph{}); err != nil {
		return nil, fmt.Errorf("migrate registry schema: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// SaveVoice persists a voice sample. Existing samples are updated.
func (r *GormRepository) SaveVoice(ctx context.Context, v *VoiceSample) error {
	if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("save voice sample: %w", err)
	}
	return nil
}

// FindVoiceByID retrieves a voice sample by id.
func (r *GormRepository) FindVoiceByID(ctx context.Context, id string) (*VoiceSample, error) {
	var v VoiceSample
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoiceNotFound
		}
		return nil, fmt.Errorf("find voice sample: %w", err)
	}
	return &v, nil
}

// ListVoices returns all voice samples ordered by creation time.
func (r *GormRepository) ListVoices(ctx context.Context) ([]*VoiceSample, error) {
	var voices []*VoiceSample
	if err := r.db.WithContext(ctx).Order("created_at").Find(&voices).Error; err != nil {
		return nil, fmt.Errorf("list voice samples: %w", err)
	}
	return voices, nil
}

// SavePassage persists a passage and its paragraphs.
func (r *GormRepository) SavePassage(ctx context.Context, p *PassageSample) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(p).Error
	if err != nil {
		return fmt.Errorf("save passage: %w", err)
	}
	return nil
}

// FindPassageByID retrieves a passage with paragraphs in document order.
func (r *GormRepository) FindPassageByID(ctx context.Context, id string) (*PassageSample, error) {
	var p PassageSample
	err := r.db.WithContext(ctx).
		Preload("Paragraphs", func(db *gorm.DB) *gorm.DB { return db.Order("ord") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassageNotFound
		}
		return nil, fmt.Errorf("find passage: %w", err)
	}
	return &p, nil
}

// UpdateParagraphAudio sets the synthesized-output blob id on one
// paragraph in a single targeted write.
func (r *GormRepository) UpdateParagraphAudio(ctx context.Context, passageID string, order int, blobID string) error {
	res := r.db.WithContext(ctx).
		Model(&Paragraph{}).
		Where("passage_id = ? AND ord = ?", passageID, order).
		Update("audio_file_id", blobID)
	if res.Error != nil {
		return fmt.Errorf("update paragraph audio: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing passage from a missing paragraph order;
		// only the former is an error.
		var count int64
		if err := r.db.WithContext(ctx).Model(&PassageSample{}).Where("id = ?", passageID).Count(&count).Error; err != nil {
			return fmt.Errorf("check passage existence: %w", err)
		}
		if count == 0 {
			return ErrPassageNotFound
		}
	}
	return nil
}
