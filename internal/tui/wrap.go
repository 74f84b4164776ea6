package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/stmobo/thstat-sub001/internal/model"
)

type entryState uint8

const (
	entryCaptured entryState = iota
	entryFailed
	entryOpen
	entryOpenFailed
	entryBreak
)

// logEntry is one attempt in the live attempt log.
type logEntry struct {
	label string
	state entryState
}

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

func entryStyle(state entryState) lipgloss.Style {
	switch state {
	case entryCaptured:
		return capturedStyle
	case entryFailed:
		return failedStyle
	case entryOpen:
		return openStyle.Underline(true)
	case entryOpenFailed:
		return failedStyle.Underline(true)
	default:
		return pendingStyle
	}
}

// buildStyledRunes lays out the log as space separated labels.
func buildStyledRunes(entries []logEntry) []styledRune {
	out := make([]styledRune, 0, len(entries)*6)
	for i, e := range entries {
		if i > 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		style := entryStyle(e.state)
		for _, r := range e.label {
			out = append(out, styledRune{
				s:     style.Render(string(r)),
				width: runewidth.RuneWidth(r),
			})
		}
	}
	return out
}

// shortLabel is a compact location tag such as "3BS2" for the second boss
// spell of stage 3.
func shortLabel(loc model.Location) string {
	switch loc.Kind {
	case model.KindStart:
		return fmt.Sprintf("%dS", loc.Stage)
	case model.KindPreBoss:
		return fmt.Sprintf("%dPB", loc.Stage)
	}
	var tag string
	switch loc.Kind {
	case model.KindFirstHalf:
		tag = "F"
	case model.KindMidbossNonspell:
		tag = "MN"
	case model.KindMidbossSpell:
		tag = "MS"
	case model.KindSecondHalf:
		tag = "H"
	case model.KindBossNonspell:
		tag = "BN"
	case model.KindBossSpell:
		tag = "BS"
	default:
		tag = "?"
	}
	return fmt.Sprintf("%d%s%d", loc.Stage, tag, loc.Seq+1)
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
