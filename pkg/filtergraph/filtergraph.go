// Package filtergraph compiles a chapter list and style options into the
// ffmpeg filter_complex expression that draws the progress bar, chapter
// divider ticks and title overlays.
package filtergraph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vidbar/vidbar/pkg/chapters"
	"github.com/vidbar/vidbar/pkg/errors"
)

// Title overlay positions.
const (
	TopLeft     = "top_left"
	TopRight    = "top_right"
	BottomLeft  = "bottom_left"
	BottomRight = "bottom_right"
)

// Style describes the look of the rendered progress bar. Zero values are
// replaced by the defaults documented on each field; colors left empty come
// from the selected Scheme.
type Style struct {
	// Scheme names a built-in color scheme. Empty selects "default".
	Scheme string
	// BarColor fills the elapsed portion of the bar. Overrides the scheme.
	BarColor string
	// BgColor fills the bar background. Overrides the scheme.
	BgColor string
	// DividerColor draws the chapter ticks. Overrides the scheme.
	DividerColor string
	// TextColor draws the in-bar chapter titles. Overrides the scheme.
	TextColor string

	// BarHeight is the bar height in pixels. Default 80, tall enough for text.
	BarHeight int
	// DividerWidth is the tick width in pixels. Default 2.
	DividerWidth int

	// FontPath points at a font file for drawtext. Required whenever any
	// chapter has a title.
	FontPath string
	// FontSize sizes the in-bar chapter titles. Default 28.
	FontSize int

	// TitlePosition places the corner title overlay. Default TopLeft.
	TitlePosition string
	// TitleXOffset and TitleYOffset inset the corner title. Default 30 each.
	TitleXOffset int
	TitleYOffset int
	// TitleFontSize sizes the corner title. Default max(48, FontSize+20).
	TitleFontSize int
	// TitleColor draws the corner title text. Default "white".
	TitleColor string
	// TitleBgColor fills the corner title's background box. Default "black@0.6".
	TitleBgColor string
	// TitleBgBorder is the background box border width in pixels. Default 4.
	TitleBgBorder int
	// TitleFade is the corner title fade in/out duration in seconds. Default 0.5.
	TitleFade float64
}

// DefaultStyle returns a Style with every default filled in.
func DefaultStyle() Style {
	s := Style{}
	s.applyDefaults()
	return s
}

func (s *Style) applyDefaults() {
	if s.Scheme == "" {
		s.Scheme = "default"
	}
	if s.BarHeight == 0 {
		s.BarHeight = 80
	}
	if s.DividerWidth == 0 {
		s.DividerWidth = 2
	}
	if s.FontSize == 0 {
		s.FontSize = 28
	}
	if s.TitlePosition == "" {
		s.TitlePosition = TopLeft
	}
	if s.TitleXOffset == 0 {
		s.TitleXOffset = 30
	}
	if s.TitleYOffset == 0 {
		s.TitleYOffset = 30
	}
	if s.TitleFontSize == 0 {
		s.TitleFontSize = s.FontSize + 20
		if s.TitleFontSize < 48 {
			s.TitleFontSize = 48
		}
	}
	if s.TitleColor == "" {
		s.TitleColor = "white"
	}
	if s.TitleBgColor == "" {
		s.TitleBgColor = "black@0.6"
	}
	if s.TitleBgBorder == 0 {
		s.TitleBgBorder = 4
	}
	if s.TitleFade == 0 {
		s.TitleFade = 0.5
	}
}

// ValidatePosition checks a title position value.
func ValidatePosition(pos string) error {
	switch pos {
	case "", TopLeft, TopRight, BottomLeft, BottomRight:
		return nil
	}
	return errors.New(errors.ValidationError, "Invalid title position",
		fmt.Sprintf("%q: expected one of top_left, top_right, bottom_left, bottom_right", pos),
		errors.ErrBadPosition)
}

// Graph is a compiled filter graph ready to hand to ffmpeg.
type Graph struct {
	// FilterComplex is the -filter_complex expression. It consumes [0:v]
	// (the source video) and [1:v] (the solid bar color source) and labels
	// its result [out].
	FilterComplex string
	// ColorSource is the lavfi specification generating input [1:v]: an
	// opaque full-width bar in the fill color. Transparency is applied in
	// the overlay chain, so any alpha suffix is stripped here.
	ColorSource string
}

// resolvedColors are the style colors after scheme resolution and encoding
// into ffmpeg syntax.
type resolvedColors struct {
	bg      string
	bar     string
	rawBar  string // pre-encoding, for the color source
	divider string
	text    string
}

func resolveColors(style Style) (resolvedColors, error) {
	scheme, err := LookupScheme(style.Scheme)
	if err != nil {
		return resolvedColors{}, err
	}

	pick := func(explicit, fromScheme string) string {
		if explicit != "" {
			return explicit
		}
		return fromScheme
	}

	rawBar := pick(style.BarColor, scheme.BarColor)

	var rc resolvedColors
	rc.rawBar = rawBar
	if rc.bg, err = EncodeColor(pick(style.BgColor, scheme.BgColor)); err != nil {
		return rc, err
	}
	if rc.bar, err = EncodeColor(rawBar); err != nil {
		return rc, err
	}
	if rc.divider, err = EncodeColor(pick(style.DividerColor, scheme.DividerColor)); err != nil {
		return rc, err
	}
	if rc.text, err = EncodeColor(pick(style.TextColor, scheme.TextColor)); err != nil {
		return rc, err
	}
	return rc, nil
}

// Compile builds the filter graph for the given chapters and style against a
// video of the given duration (seconds) and width (pixels).
//
// The bar itself animates with the "slide-in" technique: a full-width solid
// bar starts one frame-width left of the screen (x = -W at t=0) and slides to
// x = 0 at t = duration. Being a solid color, the slide is indistinguishable
// from the bar growing left to right, and it needs no per-frame redrawing.
//
// Chapter offsets at or past the end of the video are clipped: the divider
// tick lands on the last visible column and the title overlay is suppressed
// because its segment has zero length.
func Compile(list []chapters.Chapter, style Style, duration float64, width int) (*Graph, error) {
	if duration <= 0 {
		return nil, errors.New(errors.ValidationError, "Video duration must be positive",
			fmt.Sprintf("got %v", duration), errors.ErrBadTimeToken)
	}
	if err := ValidatePosition(style.TitlePosition); err != nil {
		return nil, err
	}
	style.applyDefaults()

	if chapters.HasTitles(list) && style.FontPath == "" {
		return nil, errors.New(errors.ConfigurationError, "Chapter titles require a font path",
			"set Style.FontPath or drop the titles", errors.ErrTitleNeedsFont)
	}

	colors, err := resolveColors(style)
	if err != nil {
		return nil, err
	}

	durStr := formatFloat(duration)
	var parts []string

	// Background bar across the bottom of the frame.
	parts = append(parts, fmt.Sprintf(
		"[0:v]drawbox=y=ih-%d:color=%s:width=iw:height=%d:thickness=fill[bg]",
		style.BarHeight, colors.bg, style.BarHeight))

	// Slide-in overlay of the solid bar source.
	parts = append(parts, fmt.Sprintf(
		"[bg][1:v]overlay=x='(t/%s-1)*%d':y=H-%d:shortest=1[progress]",
		durStr, width, style.BarHeight))

	var post []string
	post = append(post, dividerFilters(list, style, colors, duration)...)
	post = append(post, barTitleFilters(list, style, colors, duration, width)...)
	post = append(post, cornerTitleFilters(list, style, duration)...)

	if len(post) > 0 {
		parts = append(parts, fmt.Sprintf("[progress]%s[out]", strings.Join(post, ",")))
	} else {
		parts[len(parts)-1] = strings.Replace(parts[len(parts)-1], "[progress]", "[out]", 1)
	}

	return &Graph{
		FilterComplex: strings.Join(parts, ";"),
		ColorSource:   colorSource(colors.rawBar, style.BarHeight, width, duration),
	}, nil
}

// colorSource builds the lavfi spec for the solid bar input. The color filter
// takes an opaque color; format=rgba keeps an alpha plane for the overlay.
func colorSource(barColor string, barHeight, width int, duration float64) string {
	return fmt.Sprintf("color=c=%s:s=%dx%d:d=%s:r=30,format=rgba",
		StripAlpha(barColor), width, barHeight, formatFloat(duration))
}

// dividerFilters emits one drawbox tick per chapter. Ticks at offset zero (or
// within the first half second) coincide with the bar's left edge and are
// skipped; ticks at or past the end clip to the last visible column.
func dividerFilters(list []chapters.Chapter, style Style, colors resolvedColors, duration float64) []string {
	var out []string
	for _, c := range list {
		if c.Offset <= 0.5 {
			continue
		}
		var x string
		if c.Offset >= duration {
			x = fmt.Sprintf("iw-%d", style.DividerWidth)
		} else {
			x = "iw*" + formatPct(c.Offset/duration)
		}
		out = append(out, fmt.Sprintf(
			"drawbox=x=%s:y=ih-%d:w=%d:h=%d:color=%s:thickness=fill",
			x, style.BarHeight, style.DividerWidth, style.BarHeight, colors.divider))
	}
	return out
}

// barTitleFilters draws each chapter title inside the bar, centered in its
// segment and truncated to the segment width.
func barTitleFilters(list []chapters.Chapter, style Style, colors resolvedColors, duration float64, width int) []string {
	if style.FontPath == "" {
		return nil
	}

	fontPath := EscapeFontPath(style.FontPath)
	var out []string
	for i, c := range list {
		if c.Title == "" || c.Offset >= duration {
			continue
		}

		end := segmentEnd(list, i, duration)
		startPct := c.Offset / duration
		endPct := end / duration
		centerPct := (startPct + endPct) / 2

		// 10% margin keeps the text off the ticks.
		segmentWidth := (endPct - startPct) * float64(width) * 0.9
		title := truncateToWidth(c.Title, segmentWidth, style.FontSize)
		if title == "" {
			continue
		}

		out = append(out, fmt.Sprintf(
			"drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%d:"+
				"x='(w*%s)-(tw/2)':y='h-(%d/2)-(th/3)':shadowcolor=black@0.7:shadowx=2:shadowy=2",
			fontPath, EscapeText(title), colors.text, style.FontSize,
			formatPct(centerPct), style.BarHeight))
	}
	return out
}

// cornerTitleFilters draws the active chapter title in the configured corner,
// fading in and out around the chapter boundaries.
func cornerTitleFilters(list []chapters.Chapter, style Style, duration float64) []string {
	if style.FontPath == "" || !chapters.HasTitles(list) {
		return nil
	}

	xExpr, yExpr := cornerPosition(style)
	fontPath := EscapeFontPath(style.FontPath)

	var out []string
	for i, c := range list {
		if c.Title == "" || c.Offset >= duration {
			continue
		}

		start := c.Offset
		end := segmentEnd(list, i, duration)

		fadeHalf := style.TitleFade / 2
		fadeStart := start - fadeHalf
		if fadeStart < 0 {
			fadeStart = 0
		}
		fadeEnd := end + fadeHalf
		if fadeEnd > duration {
			fadeEnd = duration
		}

		alpha := "0"
		if end < fadeEnd {
			alpha = fmt.Sprintf("if(between(t,%s,%s),1-(t-%s)/%s,%s)",
				formatTime(end), formatTime(fadeEnd), formatTime(end), formatTime(fadeEnd-end), alpha)
		}
		alpha = fmt.Sprintf("if(between(t,%s,%s),1,%s)", formatTime(start), formatTime(end), alpha)
		if fadeStart < start {
			alpha = fmt.Sprintf("if(between(t,%s,%s),(t-%s)/%s,%s)",
				formatTime(fadeStart), formatTime(start), formatTime(fadeStart), formatTime(start-fadeStart), alpha)
		}

		out = append(out, fmt.Sprintf(
			"drawtext=fontfile='%s':text='%s':fontcolor=%s:fontsize=%d:"+
				"x='%s':y='%s':box=1:boxcolor=%s:boxborderw=%d:"+
				"enable='between(t,%s,%s)':alpha='%s'",
			fontPath, EscapeText(c.Title), style.TitleColor, style.TitleFontSize,
			xExpr, yExpr, style.TitleBgColor, style.TitleBgBorder,
			formatTime(fadeStart), formatTime(fadeEnd), alpha))
	}
	return out
}

// cornerPosition returns the drawtext x/y expressions for the corner title.
// The bottom positions sit above the bar so the overlay never covers it.
func cornerPosition(style Style) (string, string) {
	switch style.TitlePosition {
	case TopRight:
		return fmt.Sprintf("w-tw-%d", style.TitleXOffset), strconv.Itoa(style.TitleYOffset)
	case BottomLeft:
		return strconv.Itoa(style.TitleXOffset),
			fmt.Sprintf("h-%d-%d-th", style.BarHeight, style.TitleYOffset)
	case BottomRight:
		return fmt.Sprintf("w-tw-%d", style.TitleXOffset),
			fmt.Sprintf("h-%d-%d-th", style.BarHeight, style.TitleYOffset)
	default:
		return strconv.Itoa(style.TitleXOffset), strconv.Itoa(style.TitleYOffset)
	}
}

// segmentEnd returns where chapter i's segment ends: the next chapter's
// offset, or the end of the video for the last chapter, clamped to duration.
func segmentEnd(list []chapters.Chapter, i int, duration float64) float64 {
	end := duration
	if i+1 < len(list) {
		end = list[i+1].Offset
	}
	if end > duration {
		end = duration
	}
	return end
}

// truncateToWidth trims text to fit maxWidth pixels at the given font size.
// CJK characters render roughly square, everything else at about half the
// font size. No ellipsis is added; a hard cut keeps the estimate safe.
func truncateToWidth(text string, maxWidth float64, fontSize int) string {
	if maxWidth < float64(fontSize)*0.5 {
		return ""
	}

	width := 0.0
	var b strings.Builder
	for _, r := range text {
		charWidth := float64(fontSize) * 0.5
		if isWide(r) {
			charWidth = float64(fontSize)
		}
		if width+charWidth > maxWidth {
			break
		}
		b.WriteRune(r)
		width += charWidth
	}
	return b.String()
}

func isWide(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK unified ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // full-width forms
}

// formatPct renders a timeline fraction with six decimal places, trailing
// zeros trimmed, always with a leading digit.
func formatPct(pct float64) string {
	s := strconv.FormatFloat(pct, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// formatTime renders a timestamp for enable/alpha expressions.
func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', 3, 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
