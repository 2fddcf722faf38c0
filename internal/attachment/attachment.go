package attachment

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "sudooom.social.realtime/internal/errors"
)

// MaxSize 单个附件大小上限（字节）
const MaxSize = 10 * 1024 * 1024

// allowedExtensions 附件扩展名白名单
// 按原样匹配，大小写敏感
var allowedExtensions = map[string]struct{}{
	"mp4": {},
	"mp3": {},
	"jpg": {},
	"JPG": {},
	"png": {},
	"PNG": {},
	"GIF": {},
	"pdf": {},
}

// Validate 校验附件的扩展名和大小
func Validate(fileName string, size int64) error {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if _, ok := allowedExtensions[ext]; !ok {
		return apperrors.ErrAttachmentType
	}
	if size > MaxSize {
		return apperrors.ErrAttachmentTooLarge
	}
	return nil
}

// FileType 按扩展名推断媒体类别
func FileType(fileName string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")) {
	case "mp4":
		return "video"
	case "mp3":
		return "audio"
	case "jpg", "png", "gif":
		return "image"
	case "pdf":
		return "document"
	default:
		return "file"
	}
}

// Storage 附件落盘存储
type Storage struct {
	dir    string
	logger *slog.Logger
}

// NewStorage 创建附件存储，目录不存在时创建
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{
		dir:    dir,
		logger: slog.Default(),
	}, nil
}

// Save 写入附件内容，返回落盘文件名
// 落盘文件名随机生成，保留原始扩展名，避免同名覆盖
func (s *Storage) Save(fileName string, data []byte) (string, error) {
	storedName := uuid.NewString() + filepath.Ext(fileName)
	path := filepath.Join(s.dir, storedName)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to save attachment", "fileName", fileName, "error", err)
		return "", apperrors.ErrServerError.Wrap(err)
	}

	return storedName, nil
}

// Remove 删除落盘附件（消息回滚时调用）
func (s *Storage) Remove(storedName string) {
	if storedName == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, storedName)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove attachment", "storedName", storedName, "error", err)
	}
}

// URL 返回附件的访问路径
func (s *Storage) URL(storedName string) string {
	return "/media/chat_attachments/" + storedName
}
