package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fliplister/internal/config"
)

// allowedExts 能接收的图片扩展名。
var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// Manager 管理上传图片的本地存储。
// 文件按日期分目录存放，文件名用 UUID 重写，原始文件名只保留扩展名。
type Manager struct {
	dir           string
	baseURL       string
	retentionDays int
	logger        *slog.Logger

	now func() time.Time
}

// NewManager 创建存储管理器并确保根目录存在。
func NewManager(cfg *config.StorageConfig, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Manager{
		dir:           cfg.Dir,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Dir 返回存储根目录，HTTP 层用它挂载静态文件路由。
func (m *Manager) Dir() string {
	return m.dir
}

// Save 写入一个上传文件，返回对外可访问的 URL。
// 扩展名不在白名单内时拒绝。
func (m *Manager) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExts[ext] {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}

	day := m.now().UTC().Format("2006-01-02")
	subdir := filepath.Join(m.dir, day)
	if err := os.MkdirAll(subdir, 0755); err != nil {
		return "", fmt.Errorf("create date dir: %w", err)
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(subdir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write file: %w", err)
	}

	return m.baseURL + "/" + day + "/" + name, nil
}

// Delete 按 URL 删除文件。URL 不属于本存储时静默忽略。
func (m *Manager) Delete(fileURL string) error {
	rel, ok := m.relPath(fileURL)
	if !ok {
		return nil
	}
	full := filepath.Join(m.dir, rel)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// relPath 把对外 URL 还原成存储目录内的相对路径。
// 拒绝任何试图跳出根目录的路径。
func (m *Manager) relPath(fileURL string) (string, bool) {
	if !strings.HasPrefix(fileURL, m.baseURL+"/") {
		return "", false
	}
	rel := strings.TrimPrefix(fileURL, m.baseURL+"/")
	rel = path.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || strings.Contains(rel, "../") {
		return "", false
	}
	return filepath.FromSlash(rel), true
}

// Sweep 删除超过保留期的文件，返回删除数量。retentionDays 为 0 时不动作。
func (m *Manager) Sweep() (int, error) {
	if m.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := m.now().Add(-time.Duration(m.retentionDays) * 24 * time.Hour)

	removed := 0
	err := filepath.Walk(m.dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(p); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("sweep storage: %w", err)
	}
	return removed, nil
}

// StartSweeper 周期性清理过期文件，直到 ctx 取消。
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if m.retentionDays <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.Sweep()
				if err != nil {
					m.logger.Warn("storage sweep failed", slog.String("error", err.Error()))
					continue
				}
				if n > 0 {
					m.logger.Info("storage sweep removed expired files", slog.Int("removed", n))
				}
			}
		}
	}()
}
