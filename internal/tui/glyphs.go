package tui

import (
	"os"
	"strings"
)

// Some terminals and fonts render the Unicode marks poorly; LISTD_TUI_GLYPHS=ascii switches
// the browser to plain ASCII.

type glyphSet struct {
	name       string
	selected   string
	unselected string
	cursor     string
	dot        string
	ellipsis   string
}

var (
	unicodeGlyphs = glyphSet{name: "unicode", selected: "●", unselected: "○", cursor: "›", dot: "·", ellipsis: "…"}
	asciiGlyphs   = glyphSet{name: "ascii", selected: "*", unselected: "-", cursor: ">", dot: "|", ellipsis: "~"}
)

// parseGlyphs maps a preference to a glyph set; unknown values keep fallback.
func parseGlyphs(v string, fallback glyphSet) glyphSet {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "unicode", "utf8":
		return unicodeGlyphs
	case "ascii":
		return asciiGlyphs
	default:
		return fallback
	}
}

func glyphsFromEnv() glyphSet {
	return parseGlyphs(os.Getenv("LISTD_TUI_GLYPHS"), unicodeGlyphs)
}
