// Package probe reads video metadata with ffprobe and resolves the external
// binaries the processor depends on.
package probe

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"

	"github.com/vidbar/vidbar/pkg/errors"
	"github.com/vidbar/vidbar/pkg/logger"
)

// VideoInfo holds the metadata the filter-graph compiler needs.
type VideoInfo struct {
	Width    int
	Height   int
	Duration float64
}

// Binaries holds resolved paths to the external tools.
type Binaries struct {
	FFmpeg  string
	FFprobe string
}

// Resolve locates ffmpeg and ffprobe, preferring the given paths and falling
// back to PATH lookup. A missing binary is a configuration error: it is
// detected up front, before any job is attempted.
func Resolve(ffmpegPath, ffprobePath string) (Binaries, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	resolvedFFmpeg, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return Binaries{}, errors.Wrap(err, errors.ConfigurationError,
			"ffmpeg binary not found", errors.ErrFFmpegMissing)
	}
	resolvedFFprobe, err := exec.LookPath(ffprobePath)
	if err != nil {
		return Binaries{}, errors.Wrap(err, errors.ConfigurationError,
			"ffprobe binary not found", errors.ErrFFprobeMissing)
	}

	return Binaries{FFmpeg: resolvedFFmpeg, FFprobe: resolvedFFprobe}, nil
}

// ffprobeOutput mirrors the JSON shape of ffprobe -show_format -show_streams.
type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width,omitempty"`
		Height    int    `json:"height,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Inspect runs ffprobe against the input and returns its resolution and
// duration in one pass.
func Inspect(ctx context.Context, ffprobeBinary, inputPath string) (*VideoInfo, error) {
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}

	cmd := exec.CommandContext(
		ctx,
		ffprobeBinary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrap(err, errors.ProbeError, "ffprobe execution failed", errors.ErrProbeExec)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return nil, errors.Wrap(err, errors.ProbeError, "Cannot parse ffprobe output", errors.ErrProbeParse)
	}

	var info VideoInfo
	found := false
	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			found = true
			break
		}
	}
	if !found {
		return nil, errors.New(errors.ProbeError, "No video stream in input", inputPath, errors.ErrNoVideoStream)
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, errors.New(errors.ProbeError, "Cannot detect video resolution", inputPath, errors.ErrNoVideoStream)
	}

	if probed.Format.Duration == "" {
		return nil, errors.New(errors.ProbeError, "ffprobe reported no duration", inputPath, errors.ErrNoDuration)
	}
	duration, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return nil, errors.New(errors.ProbeError, "Cannot parse video duration",
			probed.Format.Duration, errors.ErrNoDuration)
	}
	info.Duration = duration

	logger.Debug("Probed input video", "probe", map[string]interface{}{
		"input":    inputPath,
		"width":    info.Width,
		"height":   info.Height,
		"duration": info.Duration,
	})

	return &info, nil
}
