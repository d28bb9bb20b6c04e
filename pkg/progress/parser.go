package progress

import (
	"regexp"
	"strconv"
	"time"
)

// ffmpeg -stats lines carry "time=HH:MM:SS.cc" (centiseconds optional) or, for
// some muxers, a short "time=SS.cc" form. Every other line is noise here.
var (
	timeRe      = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})(?:\.(\d+))?`)
	timeShortRe = regexp.MustCompile(`time=(\d+)\.(\d+)`)
	frameRe     = regexp.MustCompile(`frame=\s*(\d+)`)
	speedRe     = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// Parser interprets ffmpeg's line-oriented status stream and turns the output
// timestamp into a fraction of completion against the source duration.
//
// It also tracks the encoding speed, smoothed from ffmpeg's own speed token
// and wall-clock observations, so ETA estimates do not jump around. A Parser
// serves exactly one ffmpeg run.
type Parser struct {
	totalDuration float64

	started      time.Time
	lastSample   time.Time
	lastTime     float64
	lastFraction float64
	speed        float64
	frames       int64
	sawProgress  bool

	now func() time.Time // test hook
}

// NewParser creates a Parser for a run over a source of the given duration in
// seconds.
func NewParser(totalDuration float64) *Parser {
	now := time.Now()
	return &Parser{
		totalDuration: totalDuration,
		started:       now,
		lastSample:    now,
		speed:         1.0,
		now:           time.Now,
	}
}

// ParseLine consumes one line of ffmpeg output. When the line carries a time
// token it returns the fraction of completion in [0, 1] and true; unrelated
// lines return false. Fractions never decrease across calls even if ffmpeg
// briefly reports an earlier timestamp.
func (p *Parser) ParseLine(line string) (float64, bool) {
	seconds, ok := parseTimeToken(line)
	if !ok {
		return 0, false
	}

	fraction := seconds / p.totalDuration
	if fraction > 1 {
		fraction = 1
	}
	if fraction < p.lastFraction {
		fraction = p.lastFraction
	}

	if m := frameRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			p.frames = n
		}
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		if s, err := strconv.ParseFloat(m[1], 64); err == nil && s > 0 {
			p.speed = s
		}
	}
	p.smoothSpeed(seconds)

	p.lastTime = seconds
	p.lastFraction = fraction
	p.sawProgress = true
	return fraction, true
}

// smoothSpeed folds a wall-clock speed observation into the running estimate.
// Samples closer than half a second apart are too noisy and are skipped.
func (p *Parser) smoothSpeed(seconds float64) {
	now := p.now()
	wall := now.Sub(p.lastSample).Seconds()
	if wall <= 0.5 {
		return
	}
	advanced := seconds - p.lastTime
	if advanced <= 0 {
		return
	}
	p.speed = 0.7*p.speed + 0.3*(advanced/wall)
	p.lastSample = now
}

// Fraction returns the last reported fraction of completion.
func (p *Parser) Fraction() float64 {
	return p.lastFraction
}

// SawProgress reports whether any time token has been observed. The runner
// uses this to emit a final 1.0 callback for clips too short to ever log one.
func (p *Parser) SawProgress() bool {
	return p.sawProgress
}

// Frames returns the last frame count ffmpeg reported.
func (p *Parser) Frames() int64 {
	return p.frames
}

// Speed returns the smoothed encoding speed as a multiple of real time.
func (p *Parser) Speed() float64 {
	return p.speed
}

// Elapsed returns the wall-clock time since the Parser was created.
func (p *Parser) Elapsed() time.Duration {
	return p.now().Sub(p.started)
}

// ETA estimates the remaining wall-clock time. It is undefined (ok=false)
// until some progress has been observed.
func (p *Parser) ETA() (time.Duration, bool) {
	if p.lastFraction <= 0 {
		return 0, false
	}
	if p.speed > 0 {
		remaining := (p.totalDuration - p.lastTime) / p.speed
		if remaining < 0 {
			remaining = 0
		}
		return time.Duration(remaining * float64(time.Second)), true
	}
	// Fall back to scaling elapsed wall time when no speed estimate exists.
	elapsed := p.Elapsed().Seconds()
	remaining := elapsed * (1 - p.lastFraction) / p.lastFraction
	return time.Duration(remaining * float64(time.Second)), true
}

// parseTimeToken extracts the output timestamp in seconds from a status line.
func parseTimeToken(line string) (float64, bool) {
	if m := timeRe.FindStringSubmatch(line); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.Atoi(m[3])
		total := float64(hours*3600 + minutes*60 + seconds)
		if m[4] != "" {
			if frac, err := strconv.ParseFloat("0."+m[4], 64); err == nil {
				total += frac
			}
		}
		return total, true
	}
	if m := timeShortRe.FindStringSubmatch(line); m != nil {
		seconds, err := strconv.ParseFloat(m[1]+"."+m[2], 64)
		if err != nil {
			return 0, false
		}
		return seconds, true
	}
	return 0, false
}
