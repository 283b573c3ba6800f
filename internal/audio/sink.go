package audio

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// Sink is the queue the output device pulls from. Sources play back to back;
// a drained source is dropped and the next one starts. When the queue is
// empty or paused the sink streams silence, so the device never stops.
type Sink struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	queue  []beep.Streamer
	paused bool
}

// NewSink creates an empty, unpaused sink at the given device rate
func NewSink(rate beep.SampleRate) *Sink {
	return &Sink{rate: rate}
}

// SampleRate returns the rate the device consumes samples at
func (s *Sink) SampleRate() beep.SampleRate {
	return s.rate
}

// Append queues a source after the current ones
func (s *Sink) Append(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, st)
}

// Clear drops every queued source. The paused flag is left alone.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		s.queue[i] = nil
	}
	s.queue = s.queue[:0]
}

// Play resumes output
func (s *Sink) Play() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Pause silences output without dropping the queue
func (s *Sink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// IsPaused reports whether output is paused
func (s *Sink) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Len returns the number of queued sources
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stream fills samples from the queue. It always fills the whole slice and
// never reports exhaustion.
func (s *Sink) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filled := 0
	if !s.paused {
		for filled < len(samples) && len(s.queue) > 0 {
			sn, sok := s.queue[0].Stream(samples[filled:])
			filled += sn
			if !sok {
				s.queue[0] = nil
				s.queue = s.queue[1:]
				continue
			}
			if sn == 0 {
				break
			}
		}
	}

	for i := filled; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

// Err always returns nil; source errors surface when the source drains
func (s *Sink) Err() error {
	return nil
}

var _ beep.Streamer = (*Sink)(nil)
