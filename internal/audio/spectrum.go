package audio

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// FFT size, must be a power of 2
	fftSize = 2048
	// SpectrumBands is the number of log-spaced bands Bands returns
	SpectrumBands = 48
	// Weight of the previous value when smoothing between windows
	smoothingFactor = 0.5
	// Share of a neighbour's level spread into each band
	bandSpread = 0.3
	// Levels below this many dB under full scale read as zero
	dynamicRange = 60.0
)

// Spectrum turns the stream the device plays into log-spaced frequency band
// levels for a meter. It is fed from the device goroutine and read from the
// run loop.
type Spectrum struct {
	mu sync.RWMutex

	fft        *fourier.FFT
	window     []float64
	windowed   []float64
	samples    []float64
	pos        int
	sampleRate int
	ready      bool

	raw      []float64
	smoothed []float64
	counts   []int
}

// NewSpectrum creates a spectrum for a stream at sampleRate
func NewSpectrum(sampleRate int) *Spectrum {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}

	// Hann window
	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	return &Spectrum{
		fft:        fourier.NewFFT(fftSize),
		window:     window,
		windowed:   make([]float64, fftSize),
		samples:    make([]float64, fftSize),
		sampleRate: sampleRate,
		raw:        make([]float64, SpectrumBands),
		smoothed:   make([]float64, SpectrumBands),
		counts:     make([]int, SpectrumBands),
	}
}

// Process mixes stereo frames to mono and recomputes the bands each time a
// full window has been collected
func (s *Spectrum) Process(frames [][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range frames {
		s.samples[s.pos] = (f[0] + f[1]) / 2
		s.pos = (s.pos + 1) % fftSize
		if s.pos == 0 {
			s.compute()
			s.ready = true
		}
	}
}

func (s *Spectrum) compute() {
	for i := range s.windowed {
		s.windowed[i] = s.samples[(s.pos+i)%fftSize] * s.window[i]
	}
	coeffs := s.fft.Coefficients(nil, s.windowed)

	for i := range s.raw {
		s.raw[i] = 0
		s.counts[i] = 0
	}

	minFreq := 20.0
	maxFreq := math.Min(20000, float64(s.sampleRate)/2)
	logMin := math.Log10(minFreq)
	logRange := math.Log10(maxFreq) - logMin
	freqPerBin := float64(s.sampleRate) / fftSize

	for bin := 1; bin < fftSize/2; bin++ {
		freq := float64(bin) * freqPerBin
		if freq < minFreq || freq > maxFreq {
			continue
		}
		band := int((math.Log10(freq) - logMin) / logRange * SpectrumBands)
		band = min(max(band, 0), SpectrumBands-1)

		c := coeffs[bin]
		magnitude := math.Hypot(real(c), imag(c))
		db := 20 * math.Log10(magnitude/fftSize+1e-10)
		level := (db + dynamicRange) / dynamicRange * 255
		s.raw[band] += math.Min(math.Max(level, 0), 255)
		s.counts[band]++
	}

	for i := range s.raw {
		if s.counts[i] > 0 {
			s.raw[i] /= float64(s.counts[i])
		}
	}

	for i := range s.smoothed {
		v := s.raw[i]
		if i > 0 {
			v += s.raw[i-1] * bandSpread
		}
		if i < SpectrumBands-1 {
			v += s.raw[i+1] * bandSpread
		}
		v = math.Min(v, 255)
		s.smoothed[i] = smoothingFactor*s.smoothed[i] + (1-smoothingFactor)*v
	}
}

// Bands returns the current band levels, 0-255, lowest frequency first
func (s *Spectrum) Bands() []uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]uint8, SpectrumBands)
	for i, v := range s.smoothed {
		out[i] = uint8(math.Min(math.Max(v, 0), 255))
	}
	return out
}

// Ready reports whether at least one full window has been analysed
func (s *Spectrum) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
