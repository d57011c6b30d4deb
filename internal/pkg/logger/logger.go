package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault 按配置的级别创建 JSON 格式的 slog.Logger。
// 未识别的级别一律按 info 处理。
func NewDefault(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv})
	return slog.New(h)
}
