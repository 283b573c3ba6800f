// Package artwork turns embedded cover bytes into an image and a terminal frame.
//
// Resolve never fails. Missing or undecodable bytes resolve to the
// resolver's placeholder, which is the same image value on every call.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	"os"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const placeholderSize = 256

// MaxPixels caps the declared size of a cover before it is decoded
const MaxPixels = 6000 * 6000

// Artwork is a resolved cover
type Artwork struct {
	Image       image.Image
	Placeholder bool
	Frame       Frame
}

// Options configures a Resolver
type Options struct {
	Protocol        Protocol
	PlaceholderPath string
	Box             Box
}

// Resolver decodes artwork and encodes it for the terminal
type Resolver struct {
	protocol    Protocol
	box         Box
	placeholder image.Image
	log         *zap.Logger
}

// NewResolver creates a resolver. An auto protocol is resolved from the
// environment once, here.
func NewResolver(log *zap.Logger, opts Options) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("artwork")

	p := opts.Protocol
	if p == "" || p == ProtocolAuto {
		p = Detect(os.Getenv)
	}

	r := &Resolver{
		protocol: p,
		box:      opts.Box,
		log:      log,
	}
	r.placeholder = r.loadPlaceholder(opts.PlaceholderPath)

	log.Debug("resolver ready", zap.String("protocol", string(p)),
		zap.Int("columns", opts.Box.Columns), zap.Int("rows", opts.Box.Rows))
	return r
}

// Protocol returns the protocol frames are encoded with
func (r *Resolver) Protocol() Protocol {
	return r.protocol
}

// Placeholder returns the fallback image
func (r *Resolver) Placeholder() image.Image {
	return r.placeholder
}

// Resolve decodes data, falling back to the placeholder
func (r *Resolver) Resolve(data []byte) Artwork {
	art := Artwork{Image: r.placeholder, Placeholder: true}

	if len(data) > 0 {
		img, format, err := decode(data)
		if err == nil {
			art.Image = img
			art.Placeholder = false
			r.log.Debug("artwork decoded", zap.String("format", format))
		} else {
			r.log.Debug("artwork not decodable", zap.Int("bytes", len(data)), zap.Error(err))
		}
	}

	frame, err := encodeFrame(art.Image, r.protocol, r.box)
	if err != nil {
		r.log.Warn("frame encode failed", zap.Error(err))
	}
	art.Frame = frame
	return art
}

// decode reads the image header first and refuses images above MaxPixels
func decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, format, fmt.Errorf("%s image %dx%d exceeds %d pixels", format, cfg.Width, cfg.Height, MaxPixels)
	}
	return image.Decode(bytes.NewReader(data))
}

func (r *Resolver) loadPlaceholder(path string) image.Image {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			img, _, derr := decode(data)
			if derr == nil {
				return img
			}
			err = derr
		}
		r.log.Warn("placeholder image unusable, using built-in", zap.String("path", path), zap.Error(err))
	}
	return drawPlaceholder(placeholderSize)
}

// drawPlaceholder draws a record in a sleeve
func drawPlaceholder(size int) image.Image {
	dc := gg.NewContext(size, size)
	c := float64(size) / 2

	dc.SetHexColor("#1e1e24")
	dc.Clear()

	dc.SetHexColor("#0b0b0d")
	dc.DrawCircle(c, c, c*0.82)
	dc.Fill()

	dc.SetHexColor("#2c2c33")
	dc.SetLineWidth(1)
	for rad := c * 0.36; rad < c*0.8; rad += c * 0.07 {
		dc.DrawCircle(c, c, rad)
		dc.Stroke()
	}

	dc.SetHexColor("#c0504d")
	dc.DrawCircle(c, c, c*0.3)
	dc.Fill()

	dc.SetHexColor("#1e1e24")
	dc.DrawCircle(c, c, c*0.04)
	dc.Fill()

	return dc.Image()
}
