package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvFFmpegPath, "")
	t.Setenv(EnvFFprobePath, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDownloadDir, "")

	s := Load()

	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", s.LogLevel, "info")
	}
	if s.DownloadDir != "downloads" {
		t.Errorf("DownloadDir = %q, want %q", s.DownloadDir, "downloads")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvFFmpegPath, "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv(EnvFontPath, "/usr/share/fonts/NotoSans.ttf")
	t.Setenv(EnvLogLevel, "debug")

	s := Load()

	if s.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegPath = %q", s.FFmpegPath)
	}
	if s.FontPath != "/usr/share/fonts/NotoSans.ttf" {
		t.Errorf("FontPath = %q", s.FontPath)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", s.LogLevel)
	}
}

func TestLoadToleratesBrokenDotEnv(t *testing.T) {
	// A .env that cannot be read (here: a directory) is only warned about;
	// Load still returns the environment-backed settings.
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".env"), 0755); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	t.Setenv(EnvLogLevel, "warn")

	s := Load()
	if s.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", s.LogLevel, "warn")
	}
	if s.DownloadDir != "downloads" {
		t.Errorf("DownloadDir = %q, want %q", s.DownloadDir, "downloads")
	}
}
