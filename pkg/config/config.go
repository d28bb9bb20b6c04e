// Package config loads environment-backed settings, optionally from a .env
// file in the working directory.
package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/vidbar/vidbar/pkg/errors"
	"github.com/vidbar/vidbar/pkg/logger"
)

// Environment variable names.
const (
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvFFprobePath = "FFPROBE_PATH"
	EnvFontPath    = "FONT_PATH"
	EnvLogLevel    = "LOG_LEVEL"
	EnvDownloadDir = "DOWNLOAD_DIR"
)

// Settings carries process-wide defaults. CLI flags and library options
// override these; they exist so a machine's ffmpeg install or preferred font
// can be configured once.
type Settings struct {
	// FFmpegPath overrides the ffmpeg binary looked up on PATH.
	FFmpegPath string
	// FFprobePath overrides the ffprobe binary looked up on PATH.
	FFprobePath string
	// FontPath is the default font file for chapter titles.
	FontPath string
	// LogLevel sets the global log level. Defaults to "info".
	LogLevel string
	// DownloadDir receives remote inputs. Defaults to "downloads".
	DownloadDir string
}

// Load reads settings from the environment. A .env file in the working
// directory is merged in first when present; a missing file is not an error.
func Load() Settings {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		loadErr := errors.Wrap(err, errors.ConfigurationError, "Failed to load .env file", errors.ErrEnvLoad)
		logger.Warn(loadErr.Message, "config", map[string]interface{}{
			"error": loadErr.Details,
			"code":  loadErr.Code,
		})
	}

	return Settings{
		FFmpegPath:  os.Getenv(EnvFFmpegPath),
		FFprobePath: os.Getenv(EnvFFprobePath),
		FontPath:    os.Getenv(EnvFontPath),
		LogLevel:    getenvDefault(EnvLogLevel, "info"),
		DownloadDir: getenvDefault(EnvDownloadDir, "downloads"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
