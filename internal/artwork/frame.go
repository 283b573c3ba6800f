package artwork

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/mattn/go-sixel"
	"github.com/nfnt/resize"
)

// Frame is artwork encoded for a terminal. Exactly one of Lines (half-block
// rows, one string per cell row) or Sixel is set, unless Protocol is none.
type Frame struct {
	Protocol Protocol
	Columns  int
	Rows     int
	Lines    []string
	Sixel    []byte
}

// Empty reports whether there is nothing to draw
func (f Frame) Empty() bool {
	return len(f.Lines) == 0 && len(f.Sixel) == 0
}

// Box is the cell area reserved for artwork, plus the pixel size of one cell
type Box struct {
	Columns    int
	Rows       int
	CellWidth  int
	CellHeight int
}

func (b Box) valid() bool {
	return b.Columns > 0 && b.Rows > 0
}

func encodeFrame(img image.Image, p Protocol, box Box) (Frame, error) {
	if img == nil || !box.valid() {
		return Frame{Protocol: ProtocolNone}, nil
	}
	switch p {
	case ProtocolSixel:
		return encodeSixel(img, box)
	case ProtocolHalfblocks:
		return encodeHalfblocks(img, box), nil
	default:
		return Frame{Protocol: ProtocolNone}, nil
	}
}

func encodeSixel(img image.Image, box Box) (Frame, error) {
	cw, ch := box.CellWidth, box.CellHeight
	if cw <= 0 {
		cw = 8
	}
	if ch <= 0 {
		ch = 16
	}

	scaled := resize.Thumbnail(uint(box.Columns*cw), uint(box.Rows*ch), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := sixel.NewEncoder(&buf).Encode(scaled); err != nil {
		return Frame{Protocol: ProtocolNone}, fmt.Errorf("sixel encode: %w", err)
	}

	b := scaled.Bounds()
	return Frame{
		Protocol: ProtocolSixel,
		Columns:  (b.Dx() + cw - 1) / cw,
		Rows:     (b.Dy() + ch - 1) / ch,
		Sixel:    buf.Bytes(),
	}, nil
}

// encodeHalfblocks packs two pixel rows into each cell using an upper half
// block with a 24-bit foreground (top pixel) and background (bottom pixel).
func encodeHalfblocks(img image.Image, box Box) Frame {
	scaled := resize.Thumbnail(uint(box.Columns), uint(box.Rows*2), img, resize.Lanczos3)
	b := scaled.Bounds()

	rows := (b.Dy() + 1) / 2
	lines := make([]string, 0, rows)
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		sb.Reset()
		for x := b.Min.X; x < b.Max.X; x++ {
			tr, tg, tb := rgb(scaled, x, y)
			if y+1 < b.Max.Y {
				br, bg, bb := rgb(scaled, x, y+1)
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀", tr, tg, tb, br, bg, bb)
			} else {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▀", tr, tg, tb)
			}
		}
		sb.WriteString("\x1b[0m")
		lines = append(lines, sb.String())
	}

	return Frame{
		Protocol: ProtocolHalfblocks,
		Columns:  b.Dx(),
		Rows:     rows,
		Lines:    lines,
	}
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
