package processor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidbar/vidbar/pkg/chapters"
	"github.com/vidbar/vidbar/pkg/errors"
	"github.com/vidbar/vidbar/pkg/filtergraph"
	"github.com/vidbar/vidbar/pkg/progress"
)

// writeScript creates an executable shell script standing in for ffmpeg or
// ffprobe so tests can exercise the runner without a media toolchain.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

const fakeProbeBody = `cat <<'EOF'
{"streams":[{"codec_type":"video","width":1280,"height":720}],"format":{"duration":"10.0"}}
EOF
`

// lastArg expands to the output path, which the runner always passes last.
const lastArg = `out=""
for a in "$@"; do out="$a"; done
`

func fakeBinaries(t *testing.T, ffmpegBody string) (ffmpeg, ffprobe string) {
	t.Helper()
	dir := t.TempDir()
	ffmpeg = writeScript(t, dir, "ffmpeg", ffmpegBody)
	ffprobe = writeScript(t, dir, "ffprobe", fakeProbeBody)
	return ffmpeg, ffprobe
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.mp4")
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0644))
	return path
}

func TestNewRejectsMissingInput(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ValidationError))
}

func TestNewRejectsBadPosition(t *testing.T) {
	_, err := New(Options{
		InputPath: "video.mp4",
		Style:     filtergraph.Style{TitlePosition: "center"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ValidationError))
}

func TestNewRejectsTitlesWithoutFont(t *testing.T) {
	_, err := New(Options{
		InputPath: "video.mp4",
		Chapters:  []chapters.Chapter{{Offset: 10, Title: "Intro"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ConfigurationError))
}

func TestNewRejectsBadExtraParams(t *testing.T) {
	_, err := New(Options{
		InputPath:   "video.mp4",
		Performance: Performance{ExtraParams: "-crf '23"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ValidationError))
}

func TestNewRejectsUnknownPreset(t *testing.T) {
	_, err := New(Options{
		InputPath:   "video.mp4",
		Performance: Performance{Preset: "warpspeed"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ValidationError))
}

func TestNewRejectsMissingBinary(t *testing.T) {
	_, err := New(Options{
		InputPath:    "video.mp4",
		FFmpegBinary: filepath.Join(t.TempDir(), "no-such-ffmpeg"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ConfigurationError))
}

func TestProcessReportsMonotonicProgress(t *testing.T) {
	ffmpeg, ffprobe := fakeBinaries(t, lastArg+`
printf 'frame=  120 fps=60 q=28.0 time=00:00:04.00 bitrate=1000k speed=2.0x\n' >&2
printf 'frame=  180 fps=60 q=28.0 time=00:00:02.00 bitrate=1000k speed=2.0x\n' >&2
printf 'frame=  240 fps=60 q=28.0 time=00:00:10.00 bitrate=1000k speed=2.0x\n' >&2
: > "$out"
exit 0
`)

	var updates []progress.Update
	outputPath := filepath.Join(t.TempDir(), "out.mp4")
	proc, err := New(Options{
		InputPath:     writeInput(t),
		OutputPath:    outputPath,
		FFmpegBinary:  ffmpeg,
		FFprobeBinary: ffprobe,
		OnProgress:    func(u progress.Update) { updates = append(updates, u) },
	})
	require.NoError(t, err)

	got, err := proc.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, outputPath, got)
	assert.FileExists(t, outputPath)

	require.Len(t, updates, 3)
	// The out-of-order timestamp must not move the fraction backwards.
	assert.InDelta(t, 0.4, updates[0].Fraction, 1e-9)
	assert.InDelta(t, 0.4, updates[1].Fraction, 1e-9)
	assert.InDelta(t, 1.0, updates[2].Fraction, 1e-9)
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].Fraction, updates[i-1].Fraction)
	}
}

func TestProcessEmitsCompletionWithoutStatusLines(t *testing.T) {
	ffmpeg, ffprobe := fakeBinaries(t, lastArg+`: > "$out"
exit 0
`)

	var updates []progress.Update
	proc, err := New(Options{
		InputPath:     writeInput(t),
		OutputPath:    filepath.Join(t.TempDir(), "out.mp4"),
		FFmpegBinary:  ffmpeg,
		FFprobeBinary: ffprobe,
		OnProgress:    func(u progress.Update) { updates = append(updates, u) },
	})
	require.NoError(t, err)

	_, err = proc.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, updates, 1)
	assert.Equal(t, 1.0, updates[0].Fraction)
}

func TestProcessFailureKeepsPartialOutput(t *testing.T) {
	ffmpeg, ffprobe := fakeBinaries(t, lastArg+`printf 'partial' > "$out"
printf 'Error initializing complex filters.\n' >&2
printf 'Invalid argument\n' >&2
exit 1
`)

	outputPath := filepath.Join(t.TempDir(), "out.mp4")
	proc, err := New(Options{
		InputPath:     writeInput(t),
		OutputPath:    outputPath,
		FFmpegBinary:  ffmpeg,
		FFprobeBinary: ffprobe,
	})
	require.NoError(t, err)

	_, err = proc.Process(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ProcessingError))
	assert.Contains(t, err.Error(), "Invalid argument")

	// The partial file stays on disk for inspection.
	assert.FileExists(t, outputPath)
}

func TestProcessRefusesExistingOutput(t *testing.T) {
	ffmpeg, ffprobe := fakeBinaries(t, "exit 0\n")

	outputPath := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, os.WriteFile(outputPath, []byte("precious"), 0644))

	proc, err := New(Options{
		InputPath:     writeInput(t),
		OutputPath:    outputPath,
		FFmpegBinary:  ffmpeg,
		FFprobeBinary: ffprobe,
	})
	require.NoError(t, err)

	_, err = proc.Process(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ValidationError))

	data, _ := os.ReadFile(outputPath)
	assert.Equal(t, "precious", string(data))
}

func TestProcessCancellation(t *testing.T) {
	ffmpeg, ffprobe := fakeBinaries(t, "sleep 10\n")

	proc, err := New(Options{
		InputPath:     writeInput(t),
		OutputPath:    filepath.Join(t.TempDir(), "out.mp4"),
		FFmpegBinary:  ffmpeg,
		FFprobeBinary: ffprobe,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = proc.Process(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ProcessingError))
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation should kill ffmpeg promptly")
}

func TestProcessSurvivesPanickingCallback(t *testing.T) {
	ffmpeg, ffprobe := fakeBinaries(t, lastArg+`
printf 'frame=1 time=00:00:05.00 speed=1.0x\n' >&2
: > "$out"
exit 0
`)

	proc, err := New(Options{
		InputPath:     writeInput(t),
		OutputPath:    filepath.Join(t.TempDir(), "out.mp4"),
		FFmpegBinary:  ffmpeg,
		FFprobeBinary: ffprobe,
		OnProgress:    func(progress.Update) { panic("listener bug") },
	})
	require.NoError(t, err)

	_, err = proc.Process(context.Background())
	require.NoError(t, err)
}

func TestBuildArgsOrdering(t *testing.T) {
	proc, err := New(Options{
		InputPath:   "video.mp4",
		Performance: Performance{Preset: "fast", Threads: 4, HWAccel: true, ExtraParams: "-crf 23"},
	})
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	graph := &filtergraph.Graph{
		FilterComplex: "[0:v]null[out]",
		ColorSource:   "color=c=black:s=1280x80:d=10:r=30,format=rgba",
	}
	args, err := proc.buildArgs("video.mp4", "out.mp4", graph)
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-hwaccel auto")
	assert.Contains(t, joined, "-i video.mp4 -f lavfi -i "+graph.ColorSource)
	assert.Contains(t, joined, "-map [out] -map 0:a? -c:a copy -c:v libx264 -preset fast -threads 4")
	assert.Contains(t, joined, "-crf 23")
	assert.Contains(t, joined, "-movflags +faststart")
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.Equal(t, "-y", args[len(args)-2])

	// Extra params land between the codec flags and the output path.
	assert.Less(t, strings.Index(joined, "-crf 23"), strings.Index(joined, "-movflags"))
}

func TestBuildArgsSkipsFaststartForNonMP4(t *testing.T) {
	proc, err := New(Options{InputPath: "video.mkv"})
	if err != nil {
		t.Skip("ffmpeg not installed")
	}

	graph := &filtergraph.Graph{FilterComplex: "[0:v]null[out]", ColorSource: "color"}
	args, err := proc.buildArgs("video.mkv", "out.mkv", graph)
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(args, " "), "faststart")
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"video.mp4", "video_with_bar.mp4"},
		{"/tmp/clip.mkv", "/tmp/clip_with_bar.mkv"},
		{"noext", "noext_with_bar"},
	}
	for _, tt := range tests {
		if got := defaultOutputPath(tt.input); got != tt.want {
			t.Errorf("defaultOutputPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
