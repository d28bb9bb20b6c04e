package filtergraph

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vidbar/vidbar/pkg/errors"
)

// Scheme bundles the colors of a progress-bar look: the background bar, the
// filled portion, the chapter divider ticks, and the title text.
type Scheme struct {
	BgColor      string `yaml:"bg_color"`
	BarColor     string `yaml:"bar_color"`
	DividerColor string `yaml:"divider_color"`
	TextColor    string `yaml:"text_color"`
}

// Built-in schemes. Every bar color keeps some transparency so the video
// stays visible under the bar; text is white throughout for contrast.
var schemes = map[string]Scheme{
	// Classic blue, safe default for tutorials.
	"default": {
		BgColor:      "black@0.6",
		BarColor:     "#007AFF@0.9",
		DividerColor: "white@0.6",
		TextColor:    "white",
	},
	// Muted champagne gold on dark grey.
	"cinema_gold": {
		BgColor:      "#1A1A1A@0.7",
		BarColor:     "#D4AF37@0.9",
		DividerColor: "white@0.4",
		TextColor:    "white",
	},
	// Solarized-style teal on near-black.
	"tech_dark": {
		BgColor:      "#002B36@0.8",
		BarColor:     "#2AA198@0.9",
		DividerColor: "#93A1A1@0.5",
		TextColor:    "white",
	},
	// Toned-down vermilion for fast-paced footage.
	"sport_red": {
		BgColor:      "black@0.6",
		BarColor:     "#E53935@0.9",
		DividerColor: "white@0.7",
		TextColor:    "white",
	},
	// Black bar on a light base, relies on text shadow.
	"minimal_ink": {
		BgColor:      "white@0.3",
		BarColor:     "black@0.8",
		DividerColor: "black@0.5",
		TextColor:    "white",
	},
	// Magenta on deep purple with cyan ticks.
	"neon_cyber": {
		BgColor:      "#18002E@0.8",
		BarColor:     "#FF00FF@0.9",
		DividerColor: "#00FFFF@0.6",
		TextColor:    "white",
	},
	// Leaf green on deep forest green.
	"forest_zen": {
		BgColor:      "#1B261B@0.7",
		BarColor:     "#66BB6A@0.9",
		DividerColor: "white@0.4",
		TextColor:    "white",
	},
	// Warning yellow with black ticks.
	"industrial_alert": {
		BgColor:      "black@0.7",
		BarColor:     "#FFD700@1.0",
		DividerColor: "black@0.5",
		TextColor:    "white",
	},
	// Nord glacier blue on slate.
	"nordic_frost": {
		BgColor:      "#2E3440@0.8",
		BarColor:     "#88C0D0@0.9",
		DividerColor: "white@0.5",
		TextColor:    "white",
	},
	// Sunset purple on indigo.
	"retro_vapor": {
		BgColor:      "#240046@0.8",
		BarColor:     "#9D4EDD@0.9",
		DividerColor: "#E0AAFF@0.6",
		TextColor:    "white",
	},
}

// LookupScheme returns the named built-in scheme.
func LookupScheme(name string) (Scheme, error) {
	if s, ok := schemes[name]; ok {
		return s, nil
	}
	return Scheme{}, errors.New(errors.ValidationError, "Unknown color scheme",
		fmt.Sprintf("%q: available schemes: %v", name, SchemeNames()), errors.ErrUnknownScheme)
}

// SchemeNames lists the built-in scheme names, sorted.
func SchemeNames() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSchemeFile reads a user-defined scheme from a YAML file. Fields left
// empty fall back to the default scheme's colors.
func LoadSchemeFile(path string) (Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scheme{}, errors.Wrap(err, errors.ConfigurationError, "Cannot read scheme file", errors.ErrBadSchemeFile)
	}

	var s Scheme
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scheme{}, errors.Wrap(err, errors.ConfigurationError, "Cannot parse scheme file", errors.ErrBadSchemeFile)
	}

	base := schemes["default"]
	if s.BgColor == "" {
		s.BgColor = base.BgColor
	}
	if s.BarColor == "" {
		s.BarColor = base.BarColor
	}
	if s.DividerColor == "" {
		s.DividerColor = base.DividerColor
	}
	if s.TextColor == "" {
		s.TextColor = base.TextColor
	}
	return s, nil
}
