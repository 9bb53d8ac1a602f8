package audio

import (
	"errors"
	"sync"
)

// FakeSink records everything written to it. Tests inspect the byte count
// instead of listening to a device.
type FakeSink struct {
	Fmt Format

	mu     sync.Mutex
	data   []byte
	writes int
	closed bool
}

func NewFakeSink(f Format) *FakeSink {
	if f.SampleRate == 0 {
		f = DefaultFormat
	}
	return &FakeSink{Fmt: f}
}

func (s *FakeSink) Format() Format { return s.Fmt }

func (s *FakeSink) Write(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("audio: sink closed")
	}
	s.data = append(s.data, pcm...)
	s.writes++
	return len(pcm), nil
}

func (s *FakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FakeSink) BytesWritten() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *FakeSink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *FakeSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakeCapture lets tests feed fragments by hand.
type FakeCapture struct {
	Fmt Format

	once sync.Once
	out  chan []byte
}

func NewFakeCapture(f Format) *FakeCapture {
	if f.SampleRate == 0 {
		f = DefaultFormat
	}
	return &FakeCapture{Fmt: f, out: make(chan []byte, 64)}
}

func (c *FakeCapture) Format() Format           { return c.Fmt }
func (c *FakeCapture) Fragments() <-chan []byte { return c.out }

// Push delivers one fragment to the consumer.
func (c *FakeCapture) Push(frag []byte) { c.out <- frag }

func (c *FakeCapture) Close() error {
	c.once.Do(func() { close(c.out) })
	return nil
}
