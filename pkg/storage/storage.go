// Package storage 笔记附件的文件存储，底层文件系统由 afero 抽象
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	ErrObjectNotFound = errors.New("附件文件不存在")
	ErrTooLarge       = errors.New("附件超过大小限制")
	ErrInvalidKey     = errors.New("非法的对象键")
)

// Store 附件存储
type Store struct {
	fs      afero.Fs
	maxSize int64
}

// NewStore 以 root 为根目录创建存储；fs 为 nil 时使用操作系统文件系统
func NewStore(fs afero.Fs, root string, maxSize int64) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建附件目录失败: %w", err)
	}
	return &Store{fs: afero.NewBasePathFs(fs, root), maxSize: maxSize}, nil
}

// NewMemStore 基于内存文件系统的存储，供测试与 CLI 临时使用
func NewMemStore(maxSize int64) *Store {
	return &Store{fs: afero.NewMemMapFs(), maxSize: maxSize}
}

// Save 写入附件内容，返回对象键与实际字节数
// 对象键形如 ab/abcdef...-....ext，按前两位分桶
func (s *Store) Save(r io.Reader, filename string) (string, int64, error) {
	id := uuid.NewString()
	key := path.Join(id[:2], id+strings.ToLower(path.Ext(filename)))

	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return "", 0, fmt.Errorf("创建附件目录失败: %w", err)
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return "", 0, fmt.Errorf("创建附件文件失败: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = s.fs.Remove(key)
		return "", 0, fmt.Errorf("写入附件失败: %w", copyErr)
	case closeErr != nil:
		_ = s.fs.Remove(key)
		return "", 0, fmt.Errorf("写入附件失败: %w", closeErr)
	case s.maxSize > 0 && n > s.maxSize:
		_ = s.fs.Remove(key)
		return "", 0, ErrTooLarge
	}
	return key, n, nil
}

// Open 打开附件，调用方负责关闭
func (s *Store) Open(key string) (afero.File, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	f, err := s.fs.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("打开附件失败: %w", err)
	}
	return f, nil
}

// Remove 删除附件，不存在时视为成功
func (s *Store) Remove(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除附件失败: %w", err)
	}
	return nil
}

func validKey(key string) bool {
	return key != "" && !strings.Contains(key, "..") && !strings.HasPrefix(key, "/")
}
