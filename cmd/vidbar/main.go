package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidbar/vidbar/pkg/chapters"
	"github.com/vidbar/vidbar/pkg/config"
	"github.com/vidbar/vidbar/pkg/filtergraph"
	"github.com/vidbar/vidbar/pkg/logger"
	"github.com/vidbar/vidbar/pkg/processor"
	"github.com/vidbar/vidbar/pkg/progress"
)

var (
	// Input/output options
	outputPath     string
	chapterTimes   []string
	chapterTitles  []string
	allowOverwrite bool
	downloadDir    string

	// Bar style options
	barHeight    int
	barColor     string
	bgColor      string
	dividerWidth int
	dividerColor string
	textColor    string
	colorScheme  string
	schemeFile   string

	// Title style options
	fontPath      string
	fontSize      int
	titlePosition string
	titleXOffset  int
	titleYOffset  int
	titleFontSize int
	titleColor    string
	titleBgColor  string
	titleBgBorder int
	titleFade     float64

	// Performance options
	ffmpegBinary  string
	ffprobeBinary string
	threads       int
	preset        string
	hwAccel       bool
	extraParams   string

	// Display options
	noProgress   bool
	progressFile string
	logLevel     string
)

func main() {
	logger.Init()
	settings := config.Load()

	rootCmd := &cobra.Command{
		Use:   "vidbar",
		Short: "vidbar - overlay a chapter progress bar on videos",
		Long: `vidbar renders a progress bar with chapter markers onto a video using ffmpeg.
The bar slides in from the left edge as the video plays, with divider ticks and
optional titles at each chapter boundary.`,
		SilenceUsage: true,
	}

	addCmd := &cobra.Command{
		Use:   "add-progressbar <input>",
		Short: "Render a progress bar with chapter markers onto a video",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddProgressBar,
	}

	// Input/output flags
	addCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: <input>_with_bar.<ext>)")
	addCmd.Flags().StringArrayVarP(&chapterTimes, "chapter-time", "c", nil, "Chapter start time, seconds or [HH:]MM:SS (repeatable)")
	addCmd.Flags().StringArrayVarP(&chapterTitles, "chapter-title", "t", nil, "Chapter title, paired with --chapter-time in order (repeatable)")
	addCmd.Flags().BoolVar(&allowOverwrite, "overwrite", false, "Allow overwriting an existing output file")
	addCmd.Flags().StringVar(&downloadDir, "download-dir", settings.DownloadDir, "Directory for downloaded remote inputs")

	// Bar style flags
	addCmd.Flags().IntVar(&barHeight, "bar-height", 0, "Bar height in pixels (default 80)")
	addCmd.Flags().StringVar(&barColor, "bar-color", "", "Bar fill color, overrides the scheme")
	addCmd.Flags().StringVar(&bgColor, "bg-color", "", "Bar background color, overrides the scheme")
	addCmd.Flags().IntVar(&dividerWidth, "divider-width", 0, "Chapter tick width in pixels (default 2)")
	addCmd.Flags().StringVar(&dividerColor, "divider-color", "", "Chapter tick color, overrides the scheme")
	addCmd.Flags().StringVar(&textColor, "text-color", "", "In-bar title color, overrides the scheme")
	addCmd.Flags().StringVar(&colorScheme, "color-scheme", "", "Built-in color scheme: "+strings.Join(filtergraph.SchemeNames(), ", "))
	addCmd.Flags().StringVar(&schemeFile, "scheme-file", "", "YAML file defining a custom color scheme")

	// Title style flags
	addCmd.Flags().StringVar(&fontPath, "font-path", settings.FontPath, "Font file for chapter titles (required with titles)")
	addCmd.Flags().IntVar(&fontSize, "font-size", 0, "In-bar title font size (default 28)")
	addCmd.Flags().StringVar(&titlePosition, "title-position", "", "Corner title position: top_left, top_right, bottom_left, bottom_right")
	addCmd.Flags().IntVar(&titleXOffset, "title-x-offset", 0, "Corner title horizontal inset (default 30)")
	addCmd.Flags().IntVar(&titleYOffset, "title-y-offset", 0, "Corner title vertical inset (default 30)")
	addCmd.Flags().IntVar(&titleFontSize, "title-font-size", 0, "Corner title font size (default max(48, font-size+20))")
	addCmd.Flags().StringVar(&titleColor, "title-color", "", "Corner title text color (default white)")
	addCmd.Flags().StringVar(&titleBgColor, "title-bg-color", "", "Corner title background color (default black@0.6)")
	addCmd.Flags().IntVar(&titleBgBorder, "title-bg-border", 0, "Corner title background border in pixels (default 4)")
	addCmd.Flags().Float64Var(&titleFade, "title-fade", 0, "Corner title fade duration in seconds (default 0.5)")

	// Performance flags
	addCmd.Flags().StringVar(&ffmpegBinary, "ffmpeg", settings.FFmpegPath, "Path to the ffmpeg binary")
	addCmd.Flags().StringVar(&ffprobeBinary, "ffprobe", settings.FFprobePath, "Path to the ffprobe binary")
	addCmd.Flags().IntVar(&threads, "threads", 0, "ffmpeg thread count (default min(CPUs, 8))")
	addCmd.Flags().StringVar(&preset, "preset", "", "libx264 encoding preset (default medium)")
	addCmd.Flags().BoolVar(&hwAccel, "hwaccel", false, "Enable automatic hardware acceleration")
	addCmd.Flags().StringVar(&extraParams, "ffmpeg-param", "", "Extra ffmpeg arguments, shell-quoted in one string")

	// Display flags
	addCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the console progress bar")
	addCmd.Flags().StringVar(&progressFile, "progress-file", "", "Write current progress percentage to this file")
	addCmd.Flags().StringVar(&logLevel, "log-level", settings.LogLevel, "Log level: debug, info, warn, error")

	schemesCmd := &cobra.Command{
		Use:   "schemes",
		Short: "List the built-in color schemes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range filtergraph.SchemeNames() {
				scheme, _ := filtergraph.LookupScheme(name)
				fmt.Printf("%-18s bar=%-14s bg=%-14s divider=%-14s text=%s\n",
					name, scheme.BarColor, scheme.BgColor, scheme.DividerColor, scheme.TextColor)
			}
		},
	}

	rootCmd.AddCommand(addCmd, schemesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAddProgressBar(cmd *cobra.Command, args []string) error {
	logger.SetLevel(logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		logger.Info("Received signal, shutting down", "main", map[string]interface{}{
			"signal": sig.String(),
		})
		cancel()
	}()

	list, err := parseChapters(chapterTimes, chapterTitles)
	if err != nil {
		return err
	}

	style, err := buildStyle()
	if err != nil {
		return err
	}

	options := processor.Options{
		InputPath:      args[0],
		OutputPath:     outputPath,
		Chapters:       list,
		Style:          style,
		AllowOverwrite: allowOverwrite,
		DownloadDir:    downloadDir,
		FFmpegBinary:   ffmpegBinary,
		FFprobeBinary:  ffprobeBinary,
		Performance: processor.Performance{
			Preset:      preset,
			Threads:     threads,
			HWAccel:     hwAccel,
			ExtraParams: extraParams,
		},
	}

	if !noProgress {
		reporterOpts := []progress.Option{progress.WithDescription("Rendering...")}
		if progressFile != "" {
			reporterOpts = append(reporterOpts, progress.WithProgressFile(progressFile))
		}
		reporter := progress.NewReporter(reporterOpts...)
		reporter.Start(10000)
		defer reporter.Complete()

		options.OnProgress = func(u progress.Update) {
			stage := fmt.Sprintf("%.1fx", u.Speed)
			if u.HasETA {
				stage = fmt.Sprintf("%.1fx, %s left", u.Speed, u.ETA.Round(time.Second))
			}
			reporter.Update(int64(u.Fraction*10000), "rendering", stage)
		}
		if isRemoteInput(args[0]) {
			options.DownloadProgress = progress.NewReporter(
				progress.WithDescription("Downloading..."),
				progress.WithShowBytes(true),
			)
		}
	}

	proc, err := processor.New(options)
	if err != nil {
		return err
	}

	renderedPath, err := proc.Process(ctx)
	if err != nil {
		return err
	}

	absPath, _ := filepath.Abs(renderedPath)
	logger.Info("Done", "main", map[string]interface{}{
		"output": absPath,
	})
	return nil
}

// isRemoteInput reports whether the input argument is an http(s) URL that the
// processor will download before rendering.
func isRemoteInput(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// parseChapters turns the repeated time/title flags into a chapter list. The
// command requires titles to pair one-to-one with times or be absent entirely;
// a partial list is almost always a forgotten flag.
func parseChapters(times, titles []string) ([]chapters.Chapter, error) {
	if len(titles) > 0 && len(titles) != len(times) {
		return nil, fmt.Errorf("got %d --chapter-title flags for %d --chapter-time flags; provide one per chapter or none",
			len(titles), len(times))
	}

	return chapters.Normalize(times, titles)
}

// buildStyle assembles the Style from flags. A scheme file's colors apply
// first, then individual color flags override them.
func buildStyle() (filtergraph.Style, error) {
	style := filtergraph.Style{
		Scheme:        colorScheme,
		BarColor:      barColor,
		BgColor:       bgColor,
		DividerColor:  dividerColor,
		TextColor:     textColor,
		BarHeight:     barHeight,
		DividerWidth:  dividerWidth,
		FontPath:      fontPath,
		FontSize:      fontSize,
		TitlePosition: titlePosition,
		TitleXOffset:  titleXOffset,
		TitleYOffset:  titleYOffset,
		TitleFontSize: titleFontSize,
		TitleColor:    titleColor,
		TitleBgColor:  titleBgColor,
		TitleBgBorder: titleBgBorder,
		TitleFade:     titleFade,
	}

	if schemeFile != "" {
		scheme, err := filtergraph.LoadSchemeFile(schemeFile)
		if err != nil {
			return filtergraph.Style{}, err
		}
		if style.BarColor == "" {
			style.BarColor = scheme.BarColor
		}
		if style.BgColor == "" {
			style.BgColor = scheme.BgColor
		}
		if style.DividerColor == "" {
			style.DividerColor = scheme.DividerColor
		}
		if style.TextColor == "" {
			style.TextColor = scheme.TextColor
		}
	}

	return style, nil
}
