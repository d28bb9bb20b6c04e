// Package chapters normalizes user-supplied chapter time tokens and titles
// into an ordered chapter list consumed by the filter-graph compiler.
package chapters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vidbar/vidbar/pkg/errors"
)

// Chapter marks an offset into the video timeline. It produces a divider tick
// on the progress bar and, when Title is non-empty, a title overlay for the
// segment starting at Offset.
type Chapter struct {
	// Offset is the chapter start in seconds from the beginning of the video.
	Offset float64 `json:"offset"`
	// Title is the optional chapter title. Empty in simple mode.
	Title string `json:"title,omitempty"`
}

// ParseTimeToken converts a time token into seconds.
//
// Accepted formats:
//   - "90"       plain seconds
//   - "01:30"    MM:SS
//   - "01:05:30" HH:MM:SS
//
// All components must be non-negative integers; minutes and seconds must be
// below 60. Anything else yields a ValidationError.
func ParseTimeToken(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, errors.New(errors.ValidationError, "Empty time token", "", errors.ErrBadTimeToken)
	}

	parts := strings.Split(token, ":")
	if len(parts) > 3 {
		return 0, errors.New(errors.ValidationError, "Invalid time token",
			fmt.Sprintf("%q: expected SS, MM:SS or HH:MM:SS", token), errors.ErrBadTimeToken)
	}

	values := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, errors.New(errors.ValidationError, "Invalid time token",
				fmt.Sprintf("%q: component %q is not a non-negative integer", token, part), errors.ErrBadTimeToken)
		}
		values[i] = n
	}

	// Minutes and seconds carry a base-60 bound; the leading component
	// (hours, or bare seconds) is unbounded.
	for i := 1; i < len(values); i++ {
		if values[i] >= 60 {
			return 0, errors.New(errors.ValidationError, "Invalid time token",
				fmt.Sprintf("%q: component %d must be below 60", token, values[i]), errors.ErrTimeComponentHigh)
		}
	}

	switch len(values) {
	case 1:
		return float64(values[0]), nil
	case 2:
		return float64(values[0]*60 + values[1]), nil
	default:
		return float64(values[0]*3600 + values[1]*60 + values[2]), nil
	}
}

// FormatSeconds renders seconds as a time string. With includeHours the result
// is HH:MM:SS, otherwise MM:SS (minutes may exceed 59). Fractions are dropped.
func FormatSeconds(seconds float64, includeHours bool) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}

	if includeHours {
		return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Normalize pairs time tokens with titles and validates the result.
//
// The titles slice may be shorter than times; unpaired chapters get an empty
// title (simple mode). More titles than times is a ValidationError, as are
// malformed tokens and offsets that are not strictly increasing.
func Normalize(times []string, titles []string) ([]Chapter, error) {
	if len(titles) > len(times) {
		return nil, errors.New(errors.ValidationError, "Too many chapter titles",
			fmt.Sprintf("%d titles for %d time tokens", len(titles), len(times)), errors.ErrTitleCountExceeds)
	}

	chapters := make([]Chapter, 0, len(times))
	for i, token := range times {
		offset, err := ParseTimeToken(token)
		if err != nil {
			return nil, err
		}

		title := ""
		if i < len(titles) {
			title = titles[i]
		}
		chapters = append(chapters, Chapter{Offset: offset, Title: title})
	}

	for i := 1; i < len(chapters); i++ {
		if chapters[i].Offset <= chapters[i-1].Offset {
			return nil, errors.New(errors.ValidationError, "Chapter offsets must be strictly increasing",
				fmt.Sprintf("offset %s does not follow %s",
					FormatSeconds(chapters[i].Offset, true), FormatSeconds(chapters[i-1].Offset, true)),
				errors.ErrOffsetsNotOrdered)
		}
	}

	return chapters, nil
}

// HasTitles reports whether any chapter carries a non-empty title.
func HasTitles(list []Chapter) bool {
	for _, c := range list {
		if c.Title != "" {
			return true
		}
	}
	return false
}
