// Package processor renders a progress bar with chapter markers onto a video
// by driving an ffmpeg subprocess. It glues together probing, filter-graph
// compilation, the subprocess run and live progress interpretation.
package processor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vidbar/vidbar/pkg/downloader"
	"github.com/vidbar/vidbar/pkg/errors"
	"github.com/vidbar/vidbar/pkg/filtergraph"
	"github.com/vidbar/vidbar/pkg/logger"
	"github.com/vidbar/vidbar/pkg/probe"
	"github.com/vidbar/vidbar/pkg/progress"
)

// stderrTailLines bounds how much ffmpeg output is kept for error reporting.
const stderrTailLines = 40

// Processor runs a single job. Create one with New per video.
type Processor struct {
	options  Options
	binaries probe.Binaries
	jobID    string
	logger   logger.Logger
}

// New validates the options, resolves the ffmpeg and ffprobe binaries and
// returns a Processor ready to run. All configuration problems surface here,
// before any subprocess is spawned.
func New(options Options) (*Processor, error) {
	return NewWithLogger(options, logger.NewLogger())
}

// NewWithLogger is New with an injected logger.
func NewWithLogger(options Options, log logger.Logger) (*Processor, error) {
	options.applyDefaults()
	if err := options.validate(); err != nil {
		return nil, err
	}

	binaries, err := probe.Resolve(options.FFmpegBinary, options.FFprobeBinary)
	if err != nil {
		return nil, err
	}

	return &Processor{
		options:  options,
		binaries: binaries,
		jobID:    uuid.New().String(),
		logger:   log,
	}, nil
}

// JobID returns the unique identifier assigned to this job.
func (p *Processor) JobID() string {
	return p.jobID
}

// Process runs the job to completion and returns the path of the rendered
// video. Cancelling the context kills the ffmpeg subprocess; a partial output
// file may remain on disk for inspection.
func (p *Processor) Process(ctx context.Context) (string, error) {
	inputPath, err := p.resolveInput(ctx)
	if err != nil {
		return "", err
	}

	outputPath := p.options.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}
	if _, err := os.Stat(outputPath); err == nil && !p.options.AllowOverwrite {
		return "", errors.New(errors.ValidationError, "Output file already exists",
			outputPath, errors.ErrOutputExists)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrap(err, errors.SystemError, "Failed to create output directory", errors.ErrOutputDirCreate)
		}
	}

	info, err := probe.Inspect(ctx, p.binaries.FFprobe, inputPath)
	if err != nil {
		return "", err
	}

	p.logger.Info("Starting progress bar render", "processor", map[string]interface{}{
		"job_id":   p.jobID,
		"input":    inputPath,
		"output":   outputPath,
		"duration": info.Duration,
		"width":    info.Width,
		"chapters": len(p.options.Chapters),
	})

	graph, err := filtergraph.Compile(p.options.Chapters, p.options.Style, info.Duration, info.Width)
	if err != nil {
		return "", err
	}

	args, err := p.buildArgs(inputPath, outputPath, graph)
	if err != nil {
		return "", err
	}

	if err := p.run(ctx, args, info.Duration); err != nil {
		return "", err
	}

	p.logger.Info("Render completed", "processor", map[string]interface{}{
		"job_id": p.jobID,
		"output": outputPath,
	})
	return outputPath, nil
}

// resolveInput returns a local path for the configured input, downloading it
// first when it is a URL.
func (p *Processor) resolveInput(ctx context.Context) (string, error) {
	if !p.options.isRemote() {
		if _, err := os.Stat(p.options.InputPath); err != nil {
			return "", errors.Wrap(err, errors.ValidationError, "Input file does not exist", errors.ErrInputMissing)
		}
		return p.options.InputPath, nil
	}

	base := filepath.Base(p.options.InputPath)
	if base == "." || base == "/" || base == "" {
		base = "input.mp4"
	}
	localPath := filepath.Join(p.options.DownloadDir, p.jobID+"_"+base)

	dl := downloader.New(downloader.Options{
		URL:        p.options.InputPath,
		OutputPath: localPath,
		Progress:   p.options.DownloadProgress,
	})
	return dl.Download(ctx)
}

// buildArgs assembles the full ffmpeg argument list. The bar graphics come in
// as a second lavfi input so the filter graph can slide them over the video.
func (p *Processor) buildArgs(inputPath, outputPath string, graph *filtergraph.Graph) ([]string, error) {
	args := []string{"-v", "info", "-stats"}
	if p.options.Performance.HWAccel {
		args = append(args, "-hwaccel", "auto")
	}
	args = append(args,
		"-i", inputPath,
		"-f", "lavfi", "-i", graph.ColorSource,
		"-filter_complex", graph.FilterComplex,
		"-map", "[out]",
		"-map", "0:a?",
		"-c:a", "copy",
		"-c:v", "libx264",
		"-preset", p.options.Performance.Preset,
		"-threads", strconv.Itoa(p.options.Performance.Threads),
	)

	extra, err := p.options.extraArgs()
	if err != nil {
		return nil, err
	}
	args = append(args, extra...)

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4", ".mov":
		args = append(args, "-movflags", "+faststart")
	}

	args = append(args, "-y", outputPath)
	return args, nil
}

// run executes ffmpeg, interpreting its stderr stream for progress as it goes.
func (p *Processor) run(ctx context.Context, args []string, duration float64) error {
	cmd := exec.CommandContext(ctx, p.binaries.FFmpeg, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, errors.SystemError, "Failed to open ffmpeg stderr pipe", errors.ErrStderrPipe)
	}

	p.logger.Debug("Running ffmpeg", "processor", map[string]interface{}{
		"job_id": p.jobID,
		"args":   strings.Join(args, " "),
	})

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, errors.ProcessingError, "Failed to start ffmpeg", errors.ErrFFmpegStart)
	}

	parser := progress.NewParser(duration)
	tail := make([]string, 0, stderrTailLines)

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanStatusLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if len(tail) == stderrTailLines {
			copy(tail, tail[1:])
			tail = tail[:stderrTailLines-1]
		}
		tail = append(tail, line)

		if fraction, ok := parser.ParseLine(line); ok {
			p.notify(fraction, parser)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.ProcessingError, "Job cancelled", errors.ErrJobCancelled)
		}
		return errors.New(errors.ProcessingError, "ffmpeg exited with an error",
			strings.Join(tail, "\n"), errors.ErrFFmpegExit)
	}

	// Very short clips can finish before ffmpeg logs a single status line.
	// Callers still get exactly one completion update.
	if !parser.SawProgress() {
		p.notify(1.0, parser)
	}
	return nil
}

// notify invokes the progress callback, shielding the run from panics in
// caller-supplied code.
func (p *Processor) notify(fraction float64, parser *progress.Parser) {
	if p.options.OnProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("Progress callback panicked", "processor", map[string]interface{}{
				"job_id": p.jobID,
				"panic":  fmt.Sprint(r),
			})
		}
	}()

	update := progress.Update{Fraction: fraction, Speed: parser.Speed()}
	if eta, ok := parser.ETA(); ok {
		update.ETA = eta
		update.HasETA = true
	}
	p.options.OnProgress(update)
}

// defaultOutputPath derives "<stem>_with_bar<ext>" next to the input.
func defaultOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(inputPath, ext)
	return stem + "_with_bar" + ext
}

// scanStatusLines splits on \n or \r. ffmpeg redraws its -stats line in place
// with bare carriage returns, so a newline-only scanner would sit on the whole
// run's progress until exit.
func scanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
