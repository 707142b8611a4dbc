package repository

import (
	"context"

	"gorm.io/gorm"

	"studydesk/backend/internal/model"
)

// NoteRepository 笔记数据访问接口
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	// CreateWithAttachments 在同一事务中写入笔记及其附件记录
	CreateWithAttachments(ctx context.Context, note *model.Note, attachments []model.NoteAttachment) error
	GetByID(ctx context.Context, userID, id string) (*model.Note, error)
	// List courseID 为空时返回全部
	List(ctx context.Context, userID, courseID string) ([]model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, userID, id string) error
}

type noteRepo struct {
	db *gorm.DB
}

// NewNoteRepo 创建 NoteRepository 实例
func NewNoteRepo(db *gorm.DB) NoteRepository {
	return &noteRepo{db: db}
}

func (r *noteRepo) Create(ctx context.Context, note *model.Note) error {
	return r.db.WithContext(ctx).Omit("Attachments").Create(note).Error
}

func (r *noteRepo) CreateWithAttachments(ctx context.Context, note *model.Note, attachments []model.NoteAttachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attachments").Create(note).Error; err != nil {
			return err
		}
		if len(attachments) == 0 {
			return nil
		}
		for i := range attachments {
			attachments[i].NoteID = note.NoteID
		}
		if err := tx.Create(&attachments).Error; err != nil {
			return err
		}
		note.Attachments = attachments
		return nil
	})
}

func (r *noteRepo) GetByID(ctx context.Context, userID, id string) (*model.Note, error) {
	var note model.Note
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("user_id = ? AND note_id = ?", userID, id).
		First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *noteRepo) List(ctx context.Context, userID, courseID string) ([]model.Note, error) {
	var notes []model.Note
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if courseID != "" {
		db = db.Where("course_id = ?", courseID)
	}
	err := db.Order("updated_at DESC").Find(&notes).Error
	return notes, err
}

func (r *noteRepo) Update(ctx context.Context, note *model.Note) error {
	return r.db.WithContext(ctx).Omit("Attachments").Save(note).Error
}

func (r *noteRepo) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND note_id = ?", userID, id).
		Delete(&model.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
