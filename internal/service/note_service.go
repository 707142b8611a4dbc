package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/model"
	"studydesk/backend/internal/repository"
	"studydesk/backend/pkg/storage"
)

// ── 笔记模块业务错误 ──

var (
	ErrNoteNotFound       = errors.New("笔记不存在")
	ErrAttachmentNotFound = errors.New("附件不存在")
	ErrAttachmentTooLarge = errors.New("附件超过大小限制")
	ErrStorageDisabled    = errors.New("附件存储未启用")
)

// NoteFile 随笔记一起写入的文件
type NoteFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AttachmentContent 附件下载结果，调用方负责关闭 Body
type AttachmentContent struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// NoteService 笔记与附件业务接口
type NoteService interface {
	Create(ctx context.Context, userID string, req *dto.CreateNoteRequest) (*dto.NoteResponse, error)
	// CreateWithFiles 创建笔记并写入附件；单个文件写入失败时整体回滚
	CreateWithFiles(ctx context.Context, userID, title, content string, files []NoteFile) (*dto.NoteResponse, error)
	GetByID(ctx context.Context, userID, id string) (*dto.NoteResponse, error)
	List(ctx context.Context, userID string, req *dto.NoteListRequest) ([]dto.NoteResponse, error)
	Update(ctx context.Context, userID, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error)
	// Delete 删除笔记及其全部附件文件
	Delete(ctx context.Context, userID, id string) error

	UploadAttachment(ctx context.Context, userID, noteID, filename, contentType string, r io.Reader) (*dto.AttachmentResponse, error)
	OpenAttachment(ctx context.Context, userID, noteID, attachmentID string) (*AttachmentContent, error)
	DeleteAttachment(ctx context.Context, userID, noteID, attachmentID string) error
}

type noteService struct {
	repo   *repository.Repository
	store  *storage.Store // 可为 nil，此时附件相关操作返回 ErrStorageDisabled
	logger *zap.Logger
}

// NewNoteService 创建 NoteService 实例
func NewNoteService(repo *repository.Repository, store *storage.Store, logger *zap.Logger) NoteService {
	return &noteService{repo: repo, store: store, logger: logger}
}

// ────────────────────── 笔记 ──────────────────────

func (s *noteService) Create(ctx context.Context, userID string, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	if err := s.checkCourse(ctx, userID, req.CourseID); err != nil {
		return nil, err
	}

	note := &model.Note{
		UserID:   userID,
		CourseID: req.CourseID,
		Title:    req.Title,
		Content:  req.Content,
	}
	if err := s.repo.Note.Create(ctx, note); err != nil {
		s.logger.Error("创建笔记失败", zap.Error(err))
		return nil, err
	}
	return toNoteResponse(note), nil
}

func (s *noteService) CreateWithFiles(ctx context.Context, userID, title, content string, files []NoteFile) (*dto.NoteResponse, error) {
	if s.store == nil && len(files) > 0 {
		return nil, ErrStorageDisabled
	}

	atts := make([]model.NoteAttachment, 0, len(files))
	rollback := func() {
		for _, a := range atts {
			_ = s.store.Remove(a.ObjectKey)
		}
	}
	for _, f := range files {
		key, n, err := s.store.Save(bytes.NewReader(f.Body), f.Filename)
		if err != nil {
			rollback()
			if errors.Is(err, storage.ErrTooLarge) {
				return nil, ErrAttachmentTooLarge
			}
			s.logger.Error("保存附件失败", zap.String("filename", f.Filename), zap.Error(err))
			return nil, err
		}
		atts = append(atts, model.NoteAttachment{
			Filename:    f.Filename,
			ContentType: contentTypeFor(f.ContentType, f.Filename),
			Size:        n,
			ObjectKey:   key,
		})
	}

	note := &model.Note{UserID: userID, Title: title, Content: content}
	if err := s.repo.Note.CreateWithAttachments(ctx, note, atts); err != nil {
		rollback()
		s.logger.Error("创建笔记失败", zap.Error(err))
		return nil, err
	}
	return toNoteResponse(note), nil
}

func (s *noteService) GetByID(ctx context.Context, userID, id string) (*dto.NoteResponse, error) {
	note, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return toNoteResponse(note), nil
}

func (s *noteService) List(ctx context.Context, userID string, req *dto.NoteListRequest) ([]dto.NoteResponse, error) {
	notes, err := s.repo.Note.List(ctx, userID, req.CourseID)
	if err != nil {
		s.logger.Error("列出笔记失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		result = append(result, *toNoteResponse(&notes[i]))
	}
	return result, nil
}

func (s *noteService) Update(ctx context.Context, userID, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	note, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.CourseID != nil {
		if err := s.checkCourse(ctx, userID, req.CourseID); err != nil {
			return nil, err
		}
		note.CourseID = req.CourseID
	}
	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}

	if err := s.repo.Note.Update(ctx, note); err != nil {
		s.logger.Error("更新笔记失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toNoteResponse(note), nil
}

func (s *noteService) Delete(ctx context.Context, userID, id string) error {
	note, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Attachment.DeleteByNote(ctx, note.NoteID); err != nil {
		s.logger.Error("删除附件记录失败", zap.String("note_id", id), zap.Error(err))
		return err
	}
	if err := s.repo.Note.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoteNotFound
		}
		s.logger.Error("删除笔记失败", zap.String("id", id), zap.Error(err))
		return err
	}

	// 文件删除失败不回滚数据库
	for _, a := range note.Attachments {
		s.removeBlob(a.ObjectKey)
	}
	return nil
}

// ────────────────────── 附件 ──────────────────────

func (s *noteService) UploadAttachment(ctx context.Context, userID, noteID, filename, contentType string, r io.Reader) (*dto.AttachmentResponse, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if _, err := s.get(ctx, userID, noteID); err != nil {
		return nil, err
	}

	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	key, n, err := s.store.Save(r, filename)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, ErrAttachmentTooLarge
		}
		s.logger.Error("保存附件失败", zap.String("filename", filename), zap.Error(err))
		return nil, err
	}

	att := &model.NoteAttachment{
		NoteID:      noteID,
		Filename:    filename,
		ContentType: contentTypeFor(contentType, filename),
		Size:        n,
		ObjectKey:   key,
	}
	if err := s.repo.Attachment.Create(ctx, att); err != nil {
		s.removeBlob(key)
		s.logger.Error("创建附件记录失败", zap.Error(err))
		return nil, err
	}

	resp := toAttachmentResponse(att)
	return &resp, nil
}

func (s *noteService) OpenAttachment(ctx context.Context, userID, noteID, attachmentID string) (*AttachmentContent, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	att, err := s.getAttachment(ctx, userID, noteID, attachmentID)
	if err != nil {
		return nil, err
	}

	f, err := s.store.Open(att.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("附件文件缺失", zap.String("attachment_id", attachmentID))
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return &AttachmentContent{
		Filename:    att.Filename,
		ContentType: att.ContentType,
		Size:        att.Size,
		Body:        f,
	}, nil
}

func (s *noteService) DeleteAttachment(ctx context.Context, userID, noteID, attachmentID string) error {
	att, err := s.getAttachment(ctx, userID, noteID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.repo.Attachment.Delete(ctx, noteID, attachmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	s.removeBlob(att.ObjectKey)
	return nil
}

// ── 内部辅助方法 ──

func (s *noteService) get(ctx context.Context, userID, id string) (*model.Note, error) {
	note, err := s.repo.Note.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoteNotFound
		}
		s.logger.Error("查询笔记失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return note, nil
}

// getAttachment 先校验笔记归属，再查附件
func (s *noteService) getAttachment(ctx context.Context, userID, noteID, attachmentID string) (*model.NoteAttachment, error) {
	if _, err := s.get(ctx, userID, noteID); err != nil {
		return nil, err
	}
	att, err := s.repo.Attachment.GetByID(ctx, noteID, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	return att, nil
}

func (s *noteService) checkCourse(ctx context.Context, userID string, courseID *string) error {
	if courseID == nil || *courseID == "" {
		return nil
	}
	if _, err := s.repo.Course.GetByID(ctx, userID, *courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}
	return nil
}

func (s *noteService) removeBlob(key string) {
	if s.store == nil {
		return
	}
	if err := s.store.Remove(key); err != nil {
		s.logger.Warn("删除附件文件失败", zap.String("key", key), zap.Error(err))
	}
}

// contentTypeFor 未声明类型时按扩展名推断
func contentTypeFor(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); t != "" {
		return t
	}
	return "application/octet-stream"
}

func toNoteResponse(n *model.Note) *dto.NoteResponse {
	resp := &dto.NoteResponse{
		ID:        n.NoteID,
		CourseID:  n.CourseID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	for _, a := range n.Attachments {
		resp.Attachments = append(resp.Attachments, toAttachmentResponse(&a))
	}
	return resp
}

func toAttachmentResponse(a *model.NoteAttachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:          a.AttachmentID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
		CreatedAt:   a.CreatedAt,
	}
}
