// Package progress provides progress reporting for long-running jobs: a
// console Reporter built on schollz/progressbar, and a Parser that interprets
// ffmpeg's status stream into fractions of completion.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/vidbar/vidbar/pkg/logger"
)

// Update is one observation delivered to a job's progress callback.
type Update struct {
	// Fraction of completion in [0, 1], non-decreasing across a job.
	Fraction float64
	// Speed is the encoding speed as a multiple of real time.
	Speed float64
	// ETA estimates remaining wall-clock time; only meaningful when HasETA.
	ETA    time.Duration
	HasETA bool
}

// Callback receives progress updates for a job. Purely observational: errors
// or slow callbacks never affect the output file.
type Callback func(Update)

// Event represents a single progress update, also serialized to the optional
// progress file.
type Event struct {
	// Status is "initialized", "started", "processing" or "completed".
	Status string `json:"status"`
	// Percentage of completion from 0.0 to 100.0.
	Percentage float64 `json:"percentage"`
	// Step is the current phase, e.g. "downloading" or "rendering".
	Step string `json:"step"`
	// Stage describes detail within the step.
	Stage string `json:"stage"`
	// Timestamp marks when the event occurred in RFC3339 format.
	Timestamp string `json:"timestamp"`
}

// Reporter is the interface job components use to surface progress.
type Reporter interface {
	// Start initializes reporting with the total number of units.
	Start(total int64)
	// Update sets the current progress with step and stage descriptions.
	Update(current int64, step, stage string)
	// Increment advances the progress by one unit.
	Increment(step, stage string)
	// Complete marks the operation as finished.
	Complete()
	// Updates emits events as they happen; closed on Complete.
	Updates() <-chan Event
}

type reporterOptions struct {
	throttle           time.Duration
	progressFilePath   string
	progressFileFormat string
	description        string
	showBytes          bool
}

// Option configures a ConsoleReporter.
type Option func(*reporterOptions)

// WithThrottle sets the minimum interval between events on the Updates
// channel, preventing listeners from being flooded. Default: no throttling.
func WithThrottle(d time.Duration) Option {
	return func(o *reporterOptions) {
		o.throttle = d
	}
}

// WithProgressFile writes the current progress to the given path, overwritten
// on every update. Format is controlled by WithProgressFileFormat.
func WithProgressFile(path string) Option {
	return func(o *reporterOptions) {
		o.progressFilePath = path
	}
}

// WithProgressFileFormat selects "text" (bare percentage) or "json" (the full
// Event). Invalid values fall back to "text".
func WithProgressFileFormat(format string) Option {
	return func(o *reporterOptions) {
		if format == "json" || format == "text" {
			o.progressFileFormat = format
			return
		}
		logger.Warn("Invalid progress file format, defaulting to 'text'", "progress", map[string]interface{}{
			"format": format,
		})
		o.progressFileFormat = "text"
	}
}

// WithDescription sets the console progress bar's label.
func WithDescription(desc string) Option {
	return func(o *reporterOptions) {
		o.description = desc
	}
}

// WithShowBytes renders the bar in bytes, for byte-counted operations like
// downloads.
func WithShowBytes(show bool) Option {
	return func(o *reporterOptions) {
		o.showBytes = show
	}
}

// ConsoleReporter renders a progress bar on stderr and emits Events on a
// channel. Safe for use from a single job at a time.
type ConsoleReporter struct {
	mu         sync.Mutex
	total      int64
	current    int64
	bar        *progressbar.ProgressBar
	opts       reporterOptions
	event      Event
	updatesCh  chan Event
	lastUpdate time.Time
}

// NewReporter creates a ConsoleReporter with the given options.
func NewReporter(opts ...Option) *ConsoleReporter {
	options := reporterOptions{
		description:        "Processing...",
		progressFileFormat: "text",
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &ConsoleReporter{
		opts: options,
		event: Event{
			Status:    "initialized",
			Timestamp: time.Now().Format(time.RFC3339),
		},
		lastUpdate: time.Now(),
		updatesCh:  make(chan Event, 10),
	}
}

// Start initializes the bar with the total number of units.
func (r *ConsoleReporter) Start(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.current = 0
	r.event.Status = "started"
	r.event.Percentage = 0
	r.event.Timestamp = time.Now().Format(time.RFC3339)

	barOpts := []progressbar.Option{
		progressbar.OptionSetDescription(r.opts.description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	}
	if r.opts.showBytes {
		barOpts = append(barOpts, progressbar.OptionShowBytes(true))
	}
	r.bar = progressbar.NewOptions64(total, barOpts...)

	r.send(true)
	r.writeProgressFile()
}

// Update sets the current progress. Channel events may be throttled; the
// console bar and progress file always reflect the latest value.
func (r *ConsoleReporter) Update(current int64, step, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil {
		return
	}
	if current > r.total {
		current = r.total
	}
	r.current = current

	percentage := 0.0
	if r.total > 0 {
		percentage = float64(current) / float64(r.total) * 100
	}
	r.event.Percentage = percentage
	r.event.Step = step
	r.event.Stage = stage
	r.event.Status = "processing"
	r.event.Timestamp = time.Now().Format(time.RFC3339)

	_ = r.bar.Set64(current)

	r.send(false)
	r.writeProgressFile()
}

// Increment advances the progress by one unit.
func (r *ConsoleReporter) Increment(step, stage string) {
	r.mu.Lock()
	current := r.current + 1
	r.mu.Unlock()
	r.Update(current, step, stage)
}

// Complete finishes the bar, sends a final event and closes the channel.
func (r *ConsoleReporter) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar == nil {
		return
	}

	_ = r.bar.Finish()
	r.current = r.total
	r.event.Percentage = 100
	r.event.Status = "completed"
	r.event.Timestamp = time.Now().Format(time.RFC3339)

	r.send(true)
	r.writeProgressFile()
	r.bar = nil
	close(r.updatesCh)
}

// Updates returns the event channel.
func (r *ConsoleReporter) Updates() <-chan Event {
	return r.updatesCh
}

// send pushes the current event to the channel, dropping it when the channel
// is full or, unless forced, when inside the throttle window. Lock held by
// caller.
func (r *ConsoleReporter) send(force bool) {
	now := time.Now()
	if !force && now.Sub(r.lastUpdate) < r.opts.throttle {
		return
	}
	r.lastUpdate = now

	select {
	case r.updatesCh <- r.event:
	default:
	}
}

// writeProgressFile persists the current event. Lock held by caller.
func (r *ConsoleReporter) writeProgressFile() {
	if r.opts.progressFilePath == "" {
		return
	}

	var content []byte
	switch r.opts.progressFileFormat {
	case "json":
		data, err := json.MarshalIndent(r.event, "", "  ")
		if err != nil {
			logger.Warn("Failed to marshal progress event", "progress", map[string]interface{}{
				"path":  r.opts.progressFilePath,
				"error": err.Error(),
			})
			return
		}
		content = data
	default:
		content = []byte(fmt.Sprintf("%.2f", r.event.Percentage))
	}

	if err := os.WriteFile(r.opts.progressFilePath, content, 0644); err != nil {
		logger.Warn("Failed to write progress file", "progress", map[string]interface{}{
			"path":  r.opts.progressFilePath,
			"error": err.Error(),
		})
	}
}
