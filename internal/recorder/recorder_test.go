package recorder

import (
	"bytes"
	"errors"
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

func TestStartThenImmediateStopYieldsZeroDurationArtifact(t *testing.T) {
	r := New(nil, Options{})
	src := audio.NewFakeCapture(audio.DefaultFormat)

	if err := r.Start(src); err != nil {
		t.Fatalf("Start: %v", err)
	}
	art, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if art.DurationSeconds != 0 {
		t.Fatalf("duration = %d, want 0", art.DurationSeconds)
	}
	if len(art.WAV) == 0 {
		t.Fatalf("expected a WAV header even with no audio data")
	}
	if art.ID == "" {
		t.Fatalf("artifact has no id")
	}
}

func TestCancelDiscardsEverything(t *testing.T) {
	r := New(nil, Options{})
	src := audio.NewFakeCapture(audio.DefaultFormat)

	if err := r.Start(src); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Push([]byte{1, 2, 3, 4})
	r.Cancel()

	if r.Recording() {
		t.Fatalf("still recording after Cancel")
	}
	if r.Elapsed() != 0 {
		t.Fatalf("elapsed = %d after Cancel, want 0", r.Elapsed())
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop after Cancel: err = %v, want ErrNotRecording", err)
	}
}

func TestThreeTimerTicksReportThreeSeconds(t *testing.T) {
	ticks := make(chan time.Time)
	r := New(nil, Options{Ticks: ticks})
	src := audio.NewFakeCapture(audio.DefaultFormat)

	if err := r.Start(src); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}
	waitFor(t, func() bool { return r.Elapsed() == 3 })

	art, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if art.DurationSeconds != 3 {
		t.Fatalf("duration = %d, want 3", art.DurationSeconds)
	}
}

func TestFragmentsAssembledInArrivalOrder(t *testing.T) {
	r := New(nil, Options{})
	src := audio.NewFakeCapture(audio.Format{SampleRate: 8000, Channels: 1})

	if err := r.Start(src); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := []byte{0x10, 0x11, 0x12, 0x13}
	second := []byte{0x20, 0x21}
	third := []byte{0x30, 0x31, 0x32, 0x33, 0x34, 0x35}
	src.Push(first)
	src.Push(second)
	src.Push(third)

	art, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	want := bytes.Join([][]byte{first, second, third}, nil)
	if !bytes.HasSuffix(art.WAV, want) {
		t.Fatalf("artifact data does not end with fragments in arrival order")
	}
}

func TestStartRejectsUnsupportedFormat(t *testing.T) {
	r := New(nil, Options{})
	src := audio.NewFakeCapture(audio.DefaultFormat)
	src.Fmt = audio.Format{SampleRate: 48000, Channels: 7}

	if err := r.Start(src); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestStartWhileRecordingRejected(t *testing.T) {
	r := New(nil, Options{})
	src := audio.NewFakeCapture(audio.DefaultFormat)

	if err := r.Start(src); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(src); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start: err = %v, want ErrAlreadyRecording", err)
	}
	r.Cancel()
}
