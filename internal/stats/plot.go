package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of percentages in [0, 100].
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	fallbackWidth     = 80
	axisGutter        = " ┤"
	colorReset        = "\x1b[0m"
)

var seriesColors = []string{
	"\x1b[36m",
	"\x1b[33m",
	"\x1b[35m",
	"\x1b[32m",
	"\x1b[34m",
	"\x1b[31m",
}

// dot bit for (column, row) inside a 2x4 braille cell.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// canvas is a grid of braille cells, each holding 2x4 dots.
type canvas struct {
	cols, rows int
	bits       [][]uint8
	owner      [][]int
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, rows: rows, bits: make([][]uint8, rows), owner: make([][]int, rows)}
	for y := range c.bits {
		c.bits[y] = make([]uint8, cols)
		c.owner[y] = make([]int, cols)
		for x := range c.owner[y] {
			c.owner[y][x] = -1
		}
	}
	return c
}

func (c *canvas) dotWidth() int  { return c.cols * 2 }
func (c *canvas) dotHeight() int { return c.rows * 4 }

func (c *canvas) set(x, y, series int) {
	if x < 0 || y < 0 || x >= c.dotWidth() || y >= c.dotHeight() {
		return
	}
	cx, cy := x/2, y/4
	c.bits[cy][cx] |= brailleBits[x%2][y%4]
	if c.owner[cy][cx] < 0 {
		c.owner[cy][cx] = series
	}
}

// line draws between two dots with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1, series int) {
	dx, dy := absInt(x1-x0), -absInt(y1-y0)
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0, series)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) cell(x, y int) (rune, int) {
	return rune(0x2800 + int(c.bits[y][x])), c.owner[y][x]
}

// PlotRates renders percentage series on a fixed 0-100% axis. A width of zero
// uses the terminal width.
func PlotRates(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	useColor = useColor && os.Getenv("NO_COLOR") == ""

	c := newCanvas(width, height)
	for si, s := range series {
		points := resample(s.Values, c.dotWidth())
		prevX, prevY := -1, -1
		for x, v := range points {
			y := rateToDot(v, c.dotHeight())
			if prevX < 0 {
				c.set(x, y, si)
			} else {
				c.line(prevX, prevY, x, y, si)
			}
			prevX, prevY = x, y
		}
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var b strings.Builder
		b.WriteString(axisLabel(y, height))
		b.WriteString(axisGutter)
		for x := 0; x < width; x++ {
			ch, owner := c.cell(x, y)
			if useColor && owner >= 0 {
				b.WriteString(seriesColors[owner%len(seriesColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
	}
	for i, s := range series {
		label := fmt.Sprintf("  %s  last %.1f%%", s.Name, s.Values[len(s.Values)-1])
		if useColor {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		if _, err := fmt.Fprintln(w, label); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotWidthFor returns the plot width that fits totalWidth including the axis.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	width := totalWidth - axisWidth()
	if width < minPlotWidth {
		return minPlotWidth
	}
	return width
}

func axisWidth() int {
	return runewidth.StringWidth(axisLabel(0, 1)) + runewidth.StringWidth(axisGutter)
}

func axisLabel(row, height int) string {
	switch {
	case row == 0:
		return "100%"
	case row == height-1:
		return "  0%"
	case height > 2 && row == height/2:
		return " 50%"
	default:
		return "    "
	}
}

func rateToDot(v float64, dots int) int {
	v = math.Max(0, math.Min(100, v))
	return int(math.Round((1 - v/100) * float64(dots-1)))
}

// resample stretches or averages values into n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	switch {
	case len(values) == 0 || n == 0:
		return nil
	case len(values) == 1 || n == 1:
		for i := range out {
			out[i] = values[len(values)-1]
		}
	case len(values) >= n:
		for i := range out {
			lo := i * len(values) / n
			hi := (i + 1) * len(values) / n
			if hi <= lo {
				hi = lo + 1
			}
			var sum float64
			for _, v := range values[lo:hi] {
				sum += v
			}
			out[i] = sum / float64(hi-lo)
		}
	default:
		scale := float64(len(values)-1) / float64(n-1)
		for i := range out {
			pos := float64(i) * scale
			idx := int(pos)
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx] + (values[idx+1]-values[idx])*frac
		}
	}
	return out
}

func nonEmpty(series []Series) []Series {
	out := series[:0:0]
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
