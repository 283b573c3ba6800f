package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/hajimehoshi/oto/v2"
)

const (
	defaultSampleRate = 44100
	defaultChannels   = 2
	defaultBitDepth   = 2 // 16-bit = 2 bytes
	bytesPerFrame     = defaultChannels * defaultBitDepth
)

// ErrDeviceUnavailable is returned when the output device cannot be opened
var ErrDeviceUnavailable = errors.New("audio output device unavailable")

// Device drives the sound card. Oto pulls PCM from Read on its own
// goroutine; Read pulls float samples from the source streamer and converts
// them to 16-bit little-endian stereo.
type Device struct {
	context    *oto.Context
	player     oto.Player // oto.Player is an interface, not a pointer
	src        beep.Streamer
	sampleRate int

	mu      sync.Mutex
	samples [][2]float64
	volume  float64 // 0.0 - 1.0
	closed  bool

	spectrum *Spectrum
}

// OpenDevice opens the default output at sampleRate and starts pulling
// from src immediately. bufferSize bounds the latency between a sink change
// and what the user hears.
func OpenDevice(sampleRate int, bufferSize time.Duration, src beep.Streamer) (*Device, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	ctx, ready, err := oto.NewContext(sampleRate, defaultChannels, defaultBitDepth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	// Wait for context to be ready
	<-ready

	d := newDevice(sampleRate, src)
	d.context = ctx
	d.player = ctx.NewPlayer(d)

	if bufferSize > 0 {
		if bs, ok := d.player.(interface{ SetBufferSize(int) }); ok {
			frames := beep.SampleRate(sampleRate).N(bufferSize)
			bs.SetBufferSize(frames * bytesPerFrame)
		}
	}

	d.player.Play()
	return d, nil
}

func newDevice(sampleRate int, src beep.Streamer) *Device {
	return &Device{
		src:        src,
		sampleRate: sampleRate,
		volume:     1.0,
	}
}

// Read implements io.Reader for the oto player
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// If closed, signal EOF to stop the player cleanly
	if d.closed {
		return 0, io.EOF
	}

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	if cap(d.samples) < frames {
		d.samples = make([][2]float64, frames)
	}
	buf := d.samples[:frames]

	n, _ := d.src.Stream(buf)
	for i := n; i < frames; i++ {
		buf[i] = [2]float64{}
	}
	if d.spectrum != nil {
		d.spectrum.Process(buf)
	}

	for i, s := range buf {
		putSample(p[i*bytesPerFrame:], s[0])
		putSample(p[i*bytesPerFrame+2:], s[1])
	}

	out := p[:frames*bytesPerFrame]
	if d.volume < 1.0 {
		d.applyVolume(out)
	}
	return len(out), nil
}

func putSample(b []byte, v float64) {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	s := int16(v * 32767)
	b[0] = byte(s)
	b[1] = byte(s >> 8)
}

// applyVolume scales 16-bit PCM samples by the current volume
func (d *Device) applyVolume(data []byte) {
	vol := d.volume
	if vol >= 1.0 {
		return
	}

	// Process 16-bit samples (2 bytes per sample, little-endian)
	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | int16(data[i+1])<<8
		scaled := int16(float64(sample) * vol)
		data[i] = byte(scaled)
		data[i+1] = byte(scaled >> 8)
	}
}

// SetVolume sets the output gain (0.0 - 1.0)
func (d *Device) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	d.volume = v
}

// SetSpectrum feeds everything the device plays into s. Nil detaches it.
func (d *Device) SetSpectrum(s *Spectrum) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spectrum = s
}

// Volume returns the current gain
func (d *Device) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// SampleRate returns the device sample rate
func (d *Device) SampleRate() int {
	return d.sampleRate
}

// Close stops the player and releases the device
func (d *Device) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	if d.player != nil {
		if err := d.player.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Ensure Device implements io.Reader
var _ io.Reader = (*Device)(nil)
