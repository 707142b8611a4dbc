package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/model"
	"studydesk/backend/internal/repository"
)

var ErrLinkNotFound = errors.New("链接不存在")

// LinkService 常用链接业务接口
type LinkService interface {
	Create(ctx context.Context, userID string, req *dto.CreateLinkRequest) (*dto.LinkResponse, error)
	List(ctx context.Context, userID string, req *dto.LinkListRequest) ([]dto.LinkResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.UpdateLinkRequest) (*dto.LinkResponse, error)
	Delete(ctx context.Context, userID, id string) error
}

type linkService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLinkService 创建 LinkService 实例
func NewLinkService(repo *repository.Repository, logger *zap.Logger) LinkService {
	return &linkService{repo: repo, logger: logger}
}

func (s *linkService) Create(ctx context.Context, userID string, req *dto.CreateLinkRequest) (*dto.LinkResponse, error) {
	link := &model.Link{
		UserID:   userID,
		Title:    req.Title,
		URL:      req.URL,
		Category: req.Category,
	}
	if err := s.repo.Link.Create(ctx, link); err != nil {
		s.logger.Error("创建链接失败", zap.Error(err))
		return nil, err
	}
	return toLinkResponse(link), nil
}

func (s *linkService) List(ctx context.Context, userID string, req *dto.LinkListRequest) ([]dto.LinkResponse, error) {
	links, err := s.repo.Link.List(ctx, userID, req.Category)
	if err != nil {
		s.logger.Error("列出链接失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.LinkResponse, 0, len(links))
	for i := range links {
		result = append(result, *toLinkResponse(&links[i]))
	}
	return result, nil
}

func (s *linkService) Update(ctx context.Context, userID, id string, req *dto.UpdateLinkRequest) (*dto.LinkResponse, error) {
	link, err := s.repo.Link.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if req.Title != nil {
		link.Title = *req.Title
	}
	if req.URL != nil {
		link.URL = *req.URL
	}
	if req.Category != nil {
		link.Category = *req.Category
	}

	if err := s.repo.Link.Update(ctx, link); err != nil {
		s.logger.Error("更新链接失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toLinkResponse(link), nil
}

func (s *linkService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Link.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLinkNotFound
		}
		s.logger.Error("删除链接失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func toLinkResponse(l *model.Link) *dto.LinkResponse {
	return &dto.LinkResponse{
		ID:       l.LinkID,
		Title:    l.Title,
		URL:      l.URL,
		Category: l.Category,
	}
}
