package repository

import (
	"context"

	"gorm.io/gorm"

	"studydesk/backend/internal/model"
)

// AttachmentRepository 笔记附件数据访问接口
type AttachmentRepository interface {
	Create(ctx context.Context, att *model.NoteAttachment) error
	GetByID(ctx context.Context, noteID, id string) (*model.NoteAttachment, error)
	ListByNote(ctx context.Context, noteID string) ([]model.NoteAttachment, error)
	Delete(ctx context.Context, noteID, id string) error
	DeleteByNote(ctx context.Context, noteID string) error
}

type attachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo 创建 AttachmentRepository 实例
func NewAttachmentRepo(db *gorm.DB) AttachmentRepository {
	return &attachmentRepo{db: db}
}

func (r *attachmentRepo) Create(ctx context.Context, att *model.NoteAttachment) error {
	return r.db.WithContext(ctx).Create(att).Error
}

func (r *attachmentRepo) GetByID(ctx context.Context, noteID, id string) (*model.NoteAttachment, error) {
	var att model.NoteAttachment
	err := r.db.WithContext(ctx).
		Where("note_id = ? AND attachment_id = ?", noteID, id).
		First(&att).Error
	if err != nil {
		return nil, err
	}
	return &att, nil
}

func (r *attachmentRepo) ListByNote(ctx context.Context, noteID string) ([]model.NoteAttachment, error) {
	var atts []model.NoteAttachment
	err := r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("created_at ASC").
		Find(&atts).Error
	return atts, err
}

func (r *attachmentRepo) Delete(ctx context.Context, noteID, id string) error {
	res := r.db.WithContext(ctx).
		Where("note_id = ? AND attachment_id = ?", noteID, id).
		Delete(&model.NoteAttachment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *attachmentRepo) DeleteByNote(ctx context.Context, noteID string) error {
	return r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Delete(&model.NoteAttachment{}).Error
}
