package ringtone

import (
	"testing"
	"time"

	"helpdesk-live/pkg/audio"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestStartEmitsPulseImmediately(t *testing.T) {
	sink := audio.NewFakeSink(audio.DefaultFormat)
	s := New(sink, nil, Options{Interval: time.Hour})
	defer s.Stop()

	s.Start()
	waitFor(t, func() bool { return sink.Writes() == 1 })
	if sink.BytesWritten() == 0 {
		t.Fatalf("pulse carried no PCM")
	}
}

func TestPulsesRepeatOnInterval(t *testing.T) {
	sink := audio.NewFakeSink(audio.DefaultFormat)
	s := New(sink, nil, Options{Interval: 5 * time.Millisecond})
	defer s.Stop()

	s.Start()
	waitFor(t, func() bool { return sink.Writes() >= 3 })
}

func TestStopCancelsSchedule(t *testing.T) {
	sink := audio.NewFakeSink(audio.DefaultFormat)
	s := New(sink, nil, Options{Interval: 5 * time.Millisecond})

	s.Start()
	waitFor(t, func() bool { return sink.Writes() >= 2 })
	s.Stop()
	if s.Ringing() {
		t.Fatalf("still ringing after Stop")
	}

	// A tick already in flight may land; after that, writes stay put.
	time.Sleep(20 * time.Millisecond)
	n := sink.Writes()
	time.Sleep(30 * time.Millisecond)
	if got := sink.Writes(); got != n {
		t.Fatalf("writes advanced from %d to %d after Stop", n, got)
	}
}

func TestStartWhileRingingIsNoOp(t *testing.T) {
	sink := audio.NewFakeSink(audio.DefaultFormat)
	s := New(sink, nil, Options{Interval: time.Hour})
	defer s.Stop()

	s.Start()
	s.Start()
	waitFor(t, func() bool { return sink.Writes() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := sink.Writes(); got != 1 {
		t.Fatalf("writes = %d, want 1 from a single schedule", got)
	}
}

func TestNilSinkDegradesSilently(t *testing.T) {
	s := New(nil, nil, Options{})
	s.Start()
	if s.Ringing() {
		t.Fatalf("reported ringing with no sink")
	}
	s.Stop()
	s.Stop()
}

func TestPulseDecays(t *testing.T) {
	f := audio.Format{SampleRate: 8000, Channels: 1}
	pcm := dualTonePulse(f, Options{}.withDefaults())

	if len(pcm) == 0 || len(pcm)%2 != 0 {
		t.Fatalf("unexpected pulse length %d", len(pcm))
	}
	peak := func(lo, hi int) int {
		max := 0
		for i := lo; i+1 < hi; i += 2 {
			v := int(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
			if v < 0 {
				v = -v
			}
			if v > max {
				max = v
			}
		}
		return max
	}
	head := peak(0, len(pcm)/4)
	tail := peak(3*len(pcm)/4, len(pcm))
	if head == 0 {
		t.Fatalf("pulse is silent at the start")
	}
	if tail >= head {
		t.Fatalf("envelope did not decay: head peak %d, tail peak %d", head, tail)
	}
}
