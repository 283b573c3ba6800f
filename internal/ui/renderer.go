// Package ui draws the player screen: the cover on the left, track details
// and the playlist on the right, a status line at the bottom.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/austinkregel/local-media/termplay/internal/artwork"
	"github.com/austinkregel/local-media/termplay/internal/session"
)

const (
	gutter       = 2
	headerLines  = 6 // title, artist, album, state, blank, list heading
	footerLines  = 3 // meter, status, help
	minTextWidth = 10
)

var (
	accentColor = lipgloss.Color("#c0504d")
	mutedColor  = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}
)

// Renderer writes full frames to an ANSI terminal
type Renderer struct {
	out  io.Writer
	help string

	status   string
	statusOK bool
	bands    []uint8

	titleStyle    lipgloss.Style
	labelStyle    lipgloss.Style
	selectedStyle lipgloss.Style
	trackStyle    lipgloss.Style
	errorStyle    lipgloss.Style
	helpStyle     lipgloss.Style
	meterStyle    lipgloss.Style
}

// New creates a renderer writing to out. help is shown on the last line.
func New(out io.Writer, help string) *Renderer {
	lg := lipgloss.NewRenderer(out)
	return &Renderer{
		out:           out,
		help:          help,
		titleStyle:    lg.NewStyle().Bold(true).Foreground(accentColor),
		labelStyle:    lg.NewStyle().Foreground(mutedColor),
		selectedStyle: lg.NewStyle().Bold(true).Foreground(accentColor),
		trackStyle:    lg.NewStyle(),
		errorStyle:    lg.NewStyle().Foreground(lipgloss.Color("#e06c75")),
		helpStyle:     lg.NewStyle().Foreground(mutedColor),
		meterStyle:    lg.NewStyle().Foreground(accentColor),
	}
}

// SetStatus shows msg on the status line until the next call. An empty
// message clears it.
func (r *Renderer) SetStatus(msg string, isError bool) {
	r.status = msg
	r.statusOK = !isError
}

// Enter switches to the alternate screen and hides the cursor
func (r *Renderer) Enter() {
	fmt.Fprint(r.out, "\x1b[?1049h\x1b[?25l\x1b[2J")
}

// Leave shows the cursor and returns to the main screen
func (r *Renderer) Leave() {
	fmt.Fprint(r.out, "\x1b[0m\x1b[?25h\x1b[?1049l")
}

// Render draws v into a width x height cell screen
func (r *Renderer) Render(v session.View, width, height int) error {
	w := bufio.NewWriter(r.out)
	fmt.Fprint(w, "\x1b[H\x1b[2J")

	frame := v.Snapshot.Artwork.Frame
	textCol := 1
	if !frame.Empty() && frame.Columns+gutter+minTextWidth <= width {
		drawFrame(w, frame)
		textCol = frame.Columns + gutter + 1
	}

	lines := r.Compose(v, width-textCol+1, height)
	for i, line := range lines {
		fmt.Fprintf(w, "\x1b[%d;%dH%s", i+1, textCol, line)
	}

	if height > 0 {
		footer := r.footer(width)
		for i, line := range footer {
			fmt.Fprintf(w, "\x1b[%d;1H\x1b[K%s", height-len(footer)+1+i, line)
		}
	}
	return w.Flush()
}

func drawFrame(w io.Writer, f artwork.Frame) {
	switch f.Protocol {
	case artwork.ProtocolSixel:
		fmt.Fprint(w, "\x1b[1;1H")
		w.Write(f.Sixel)
	case artwork.ProtocolHalfblocks:
		for i, line := range f.Lines {
			fmt.Fprintf(w, "\x1b[%d;1H%s", i+1, line)
		}
	}
}

// Compose lays out the text column: track details followed by a window of
// the playlist that keeps the selected track visible.
func (r *Renderer) Compose(v session.View, width, height int) []string {
	if width < 1 {
		return nil
	}
	snap := v.Snapshot

	state := "▶ playing"
	if v.State.Idle() {
		state = "■ stopped"
	} else if v.State.Paused {
		state = "⏸ paused"
	}

	lines := []string{
		r.titleStyle.Render(fit(snap.Title, width)),
		r.field("Artist", snap.Artist, width),
		r.field("Album", snap.Album, width),
		r.labelStyle.Render(fit(state, width)),
		"",
		r.labelStyle.Render(fit(fmt.Sprintf("Tracks (%d/%d)", v.Index+1, len(v.Names)), width)),
	}

	rows := height - headerLines - footerLines
	if rows < 1 {
		return lines
	}
	start, end := window(len(v.Names), v.Index, rows)
	for i := start; i < end; i++ {
		if i == v.Index {
			lines = append(lines, r.selectedStyle.Render(fit("› "+v.Names[i], width)))
		} else {
			lines = append(lines, r.trackStyle.Render(fit("  "+v.Names[i], width)))
		}
	}
	return lines
}

func (r *Renderer) field(label, value string, width int) string {
	prefix := label + ": "
	if runewidth.StringWidth(prefix) >= width {
		return fit(value, width)
	}
	return r.labelStyle.Render(prefix) + fit(value, width-runewidth.StringWidth(prefix))
}

// RenderMeter redraws only the meter row with new band levels
func (r *Renderer) RenderMeter(bands []uint8, width, height int) error {
	r.bands = bands
	if height < footerLines {
		return nil
	}
	_, err := fmt.Fprintf(r.out, "\x1b[%d;1H\x1b[K%s", height-footerLines+1, r.meter(width))
	return err
}

var meterLevels = []rune(" ▁▂▃▄▅▆▇█")

// meter draws bands stretched across width cells, one block per cell
func (r *Renderer) meter(width int) string {
	if len(r.bands) == 0 || width < 1 {
		return ""
	}
	var b strings.Builder
	for col := 0; col < width; col++ {
		v := int(r.bands[col*len(r.bands)/width])
		b.WriteRune(meterLevels[v*(len(meterLevels)-1)/255])
	}
	return r.meterStyle.Render(b.String())
}

func (r *Renderer) footer(width int) []string {
	status := ""
	if r.status != "" {
		if r.statusOK {
			status = r.labelStyle.Render(fit(r.status, width))
		} else {
			status = r.errorStyle.Render(fit(r.status, width))
		}
	}
	return []string{r.meter(width), status, r.helpStyle.Render(fit(r.help, width))}
}

// window returns the [start,end) slice of n items, at most rows long,
// that contains selected, keeping it centred where possible
func window(n, selected, rows int) (int, int) {
	if n <= rows {
		return 0, n
	}
	start := selected - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

// fit truncates s to width cells
func fit(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "…")
}
