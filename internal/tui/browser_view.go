package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const defaultWidth = 80

func (b *browser) View() string {
	width := b.width
	if width <= 0 {
		width = defaultWidth
	}

	var sb strings.Builder
	sb.WriteString(b.fit(b.titleLine(), width))
	sb.WriteByte('\n')

	if b.searching {
		sb.WriteString(b.fit(b.input.View(), width))
	} else if b.search != "" {
		sb.WriteString(b.fit(styleMuted().Render(fmt.Sprintf("search: %q  (esc to clear)", b.search)), width))
	}
	sb.WriteByte('\n')

	idWidth := len(strconv.Itoa(b.page.Total))
	for i, it := range b.page.Items {
		mark := b.glyphs.unselected
		if b.selected[it.ID] {
			mark = styleMarked().Render(b.glyphs.selected)
		}
		row := fmt.Sprintf("%s %*d  %s", mark, idWidth, it.ID, it.Value)
		if i == b.cursor {
			sb.WriteString(styleCursorRow().Width(width).Render(b.fit(b.glyphs.cursor+" "+row, width)))
		} else {
			sb.WriteString(b.fit("  "+row, width))
		}
		sb.WriteByte('\n')
	}
	if len(b.page.Items) == 0 {
		sb.WriteString(styleMuted().Render("  no items"))
		sb.WriteByte('\n')
	}

	switch {
	case b.err != nil:
		sb.WriteString(b.fit(styleError().Render("error: "+b.err.Error()), width))
	case b.status != "":
		sb.WriteString(b.fit(styleMuted().Render(b.status), width))
	}
	sb.WriteByte('\n')
	sb.WriteString(b.help.View(b.keys))
	return sb.String()
}

func (b *browser) titleLine() string {
	n := len(b.page.Items)
	span := "0"
	if n > 0 {
		span = fmt.Sprintf("%d-%d", b.offset+1, b.offset+n)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		styleHeader().Render("listd"),
		styleMuted().Render(fmt.Sprintf("  %s of %d  %s  %d selected", span, b.page.Total, b.glyphs.dot, len(b.selected))),
	)
}

// fit truncates s (which may contain ANSI sequences) to width cells.
func (b *browser) fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return xansi.Truncate(s, width, b.glyphs.ellipsis)
}
