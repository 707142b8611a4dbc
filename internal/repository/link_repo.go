package repository

import (
	"context"

	"gorm.io/gorm"

	"studydesk/backend/internal/model"
)

// LinkRepository 常用链接数据访问接口
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, userID, id string) (*model.Link, error)
	// List category 为空时返回全部
	List(ctx context.Context, userID, category string) ([]model.Link, error)
	Update(ctx context.Context, link *model.Link) error
	Delete(ctx context.Context, userID, id string) error
}

type linkRepo struct {
	db *gorm.DB
}

// NewLinkRepo 创建 LinkRepository 实例
func NewLinkRepo(db *gorm.DB) LinkRepository {
	return &linkRepo{db: db}
}

func (r *linkRepo) Create(ctx context.Context, link *model.Link) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *linkRepo) GetByID(ctx context.Context, userID, id string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND link_id = ?", userID, id).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *linkRepo) List(ctx context.Context, userID, category string) ([]model.Link, error) {
	var links []model.Link
	db := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if category != "" {
		db = db.Where("category = ?", category)
	}
	err := db.Order("category ASC, created_at ASC").Find(&links).Error
	return links, err
}

func (r *linkRepo) Update(ctx context.Context, link *model.Link) error {
	return r.db.WithContext(ctx).Save(link).Error
}

func (r *linkRepo) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND link_id = ?", userID, id).
		Delete(&model.Link{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
