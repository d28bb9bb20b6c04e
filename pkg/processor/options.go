package processor

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/google/shlex"

	"github.com/vidbar/vidbar/pkg/chapters"
	"github.com/vidbar/vidbar/pkg/errors"
	"github.com/vidbar/vidbar/pkg/filtergraph"
	"github.com/vidbar/vidbar/pkg/progress"
)

// Performance groups the encoding controls passed through to ffmpeg.
type Performance struct {
	// Preset is the libx264 encoding preset. Default "medium".
	Preset string
	// Threads caps ffmpeg's thread count. 0 picks min(NumCPU, 8).
	Threads int
	// HWAccel enables ffmpeg's automatic hardware acceleration.
	HWAccel bool
	// ExtraParams is a single string of additional ffmpeg arguments,
	// split with shell-like rules.
	ExtraParams string
}

var validPresets = map[string]bool{
	"ultrafast": true, "superfast": true, "veryfast": true, "faster": true,
	"fast": true, "medium": true, "slow": true, "slower": true, "veryslow": true,
}

// Options configures one processing job.
type Options struct {
	// InputPath is a local file or an http(s) URL. Remote inputs are
	// downloaded to DownloadDir before processing.
	InputPath string
	// OutputPath receives the rendered video. Empty derives
	// "<stem>_with_bar<ext>" next to the input.
	OutputPath string
	// Chapters mark the divider ticks and optional titles.
	Chapters []chapters.Chapter
	// Style controls the bar's look.
	Style filtergraph.Style
	// Performance controls the encode.
	Performance Performance

	// FFmpegBinary and FFprobeBinary override PATH lookup.
	FFmpegBinary  string
	FFprobeBinary string

	// DownloadDir receives remote inputs. Default "downloads".
	DownloadDir string
	// AllowOverwrite permits replacing an existing output file.
	AllowOverwrite bool

	// OnProgress, when set, receives fraction-of-completion updates while
	// ffmpeg runs. Observational only.
	OnProgress progress.Callback
	// DownloadProgress, when set, receives byte progress for remote input
	// downloads.
	DownloadProgress progress.Reporter
}

// validate checks everything that can be checked without touching the input
// file. It runs in New, before any subprocess is spawned.
func (o *Options) validate() error {
	if o.InputPath == "" {
		return errors.New(errors.ValidationError, "Input path is required", "", errors.ErrInputMissing)
	}
	if err := filtergraph.ValidatePosition(o.Style.TitlePosition); err != nil {
		return err
	}
	if chapters.HasTitles(o.Chapters) && o.Style.FontPath == "" {
		return errors.New(errors.ConfigurationError, "Chapter titles require a font path",
			"set Style.FontPath or drop the titles", errors.ErrTitleNeedsFont)
	}
	if o.Performance.Preset != "" && !validPresets[o.Performance.Preset] {
		return errors.New(errors.ValidationError, "Unknown encoding preset",
			fmt.Sprintf("%q", o.Performance.Preset), errors.ErrBadExtraParams)
	}
	if _, err := o.extraArgs(); err != nil {
		return err
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Performance.Preset == "" {
		o.Performance.Preset = "medium"
	}
	if o.Performance.Threads <= 0 {
		o.Performance.Threads = autoThreads()
	}
	if o.DownloadDir == "" {
		o.DownloadDir = "downloads"
	}
}

// extraArgs splits Performance.ExtraParams with shell-like quoting rules.
func (o *Options) extraArgs() ([]string, error) {
	if o.Performance.ExtraParams == "" {
		return nil, nil
	}
	args, err := shlex.Split(o.Performance.ExtraParams)
	if err != nil {
		return nil, errors.Wrap(err, errors.ValidationError, "Cannot parse extra ffmpeg parameters", errors.ErrBadExtraParams)
	}
	return args, nil
}

// isRemote reports whether the input is an http(s) URL.
func (o *Options) isRemote() bool {
	return strings.HasPrefix(o.InputPath, "http://") || strings.HasPrefix(o.InputPath, "https://")
}

func autoThreads() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	return n
}
