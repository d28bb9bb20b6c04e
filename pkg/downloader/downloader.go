// Package downloader fetches remote input videos to local disk so the
// processor can probe and render them.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vidbar/vidbar/pkg/errors"
	"github.com/vidbar/vidbar/pkg/logger"
	"github.com/vidbar/vidbar/pkg/progress"
)

// Options configures a Downloader.
type Options struct {
	// URL is the address of the file to fetch.
	URL string
	// OutputPath is where the file is saved.
	OutputPath string
	// Timeout bounds the whole HTTP operation. Defaults to 30 minutes.
	Timeout time.Duration
	// Progress optionally receives byte-level download progress.
	Progress progress.Reporter
	// AllowOverwrite permits replacing an existing file at OutputPath.
	// When false and the file exists, the download is skipped.
	AllowOverwrite bool
}

// Downloader fetches a single file over HTTP with progress reporting.
type Downloader struct {
	client  *http.Client
	options Options
}

// New creates a Downloader for the given options.
func New(options Options) *Downloader {
	if options.Timeout == 0 {
		options.Timeout = 30 * time.Minute
	}
	return &Downloader{
		client:  &http.Client{Timeout: options.Timeout},
		options: options,
	}
}

// Download fetches the file and returns the local path it was saved to.
// The context cancels the transfer.
func (d *Downloader) Download(ctx context.Context) (string, error) {
	outputDir := filepath.Dir(d.options.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.SystemError, "Failed to create download directory", errors.ErrDownloadWrite)
	}

	if _, err := os.Stat(d.options.OutputPath); err == nil && !d.options.AllowOverwrite {
		logger.Info("File already exists, skipping download", "downloader", map[string]interface{}{
			"path": d.options.OutputPath,
		})
		return d.options.OutputPath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.options.URL, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.DownloadError, "Failed to create HTTP request", errors.ErrDownloadRequest)
	}

	logger.Info("Downloading remote input", "downloader", map[string]interface{}{
		"url":  d.options.URL,
		"path": d.options.OutputPath,
	})

	resp, err := d.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.DownloadError, "Failed to download file", errors.ErrDownloadHTTP)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.DownloadError, "HTTP request failed",
			fmt.Sprintf("status: %s", resp.Status), errors.ErrDownloadHTTP)
	}

	file, err := os.Create(d.options.OutputPath)
	if err != nil {
		return "", errors.Wrap(err, errors.SystemError, "Failed to create output file", errors.ErrDownloadWrite)
	}
	defer file.Close()

	var reader io.Reader = resp.Body
	if d.options.Progress != nil && resp.ContentLength > 0 {
		d.options.Progress.Start(resp.ContentLength)
		reader = &progressReader{reader: resp.Body, reporter: d.options.Progress}
	}

	if _, err := io.Copy(file, reader); err != nil {
		return "", errors.Wrap(err, errors.DownloadError, "Failed to write file", errors.ErrDownloadWrite)
	}

	if d.options.Progress != nil && resp.ContentLength > 0 {
		d.options.Progress.Complete()
	}

	logger.Info("Download completed", "downloader", map[string]interface{}{
		"path": d.options.OutputPath,
	})

	return d.options.OutputPath, nil
}

// progressReader reports bytes read through it to a progress.Reporter.
type progressReader struct {
	reader   io.Reader
	reporter progress.Reporter
	read     int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.reporter.Update(pr.read, "downloading", "Downloading input file")
	}
	return n, err
}
