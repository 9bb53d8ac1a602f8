package media

import (
	"context"
	"testing"
)

func newTestManager(t *testing.T, backend *FakeBackend) *Manager {
	t.Helper()
	m, err := NewManager(backend, nil)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestAcquireRelease_LeavesNoLiveTracks(t *testing.T) {
	backend := &FakeBackend{}
	m := newTestManager(t, backend)

	for i := 0; i < 3; i++ {
		acq, err := m.Acquire(context.Background(), PurposeCall, Constraints{Video: true, Audio: true})
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		acq.Release()
	}

	if n := backend.LiveTracks(); n != 0 {
		t.Fatalf("expected 0 live tracks after paired releases, got %d", n)
	}
}

func TestRelease_IsIdempotent(t *testing.T) {
	backend := &FakeBackend{}
	m := newTestManager(t, backend)

	acq, err := m.Acquire(context.Background(), PurposeCall, Constraints{Audio: true})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	acq.Release()
	acq.Release()
	acq.Release()

	if n := backend.LiveTracks(); n != 0 {
		t.Fatalf("expected 0 live tracks, got %d", n)
	}
	if m.Held(PurposeCall) != nil {
		t.Fatalf("expected purpose slot cleared")
	}
}

func TestAcquire_SamePurposeReleasesPrior(t *testing.T) {
	backend := &FakeBackend{}
	m := newTestManager(t, backend)

	first, err := m.Acquire(context.Background(), PurposeCameraTest, Constraints{Video: true})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := m.Acquire(context.Background(), PurposeCameraTest, Constraints{Video: true})
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if !first.Released() {
		t.Fatalf("expected first acquisition released on reacquire")
	}
	if second.Released() {
		t.Fatalf("second acquisition must be live")
	}
	if n := backend.LiveTracks(); n != 1 {
		t.Fatalf("expected exactly 1 live track, got %d", n)
	}

	second.Release()
	if n := backend.LiveTracks(); n != 0 {
		t.Fatalf("expected 0 live tracks, got %d", n)
	}
}

func TestAcquire_DistinctPurposesCoexist(t *testing.T) {
	backend := &FakeBackend{}
	m := newTestManager(t, backend)

	call, err := m.Acquire(context.Background(), PurposeCall, Constraints{Video: true, Audio: true})
	if err != nil {
		t.Fatalf("acquire call: %v", err)
	}
	mic, err := m.Acquire(context.Background(), PurposeMicTest, Constraints{Audio: true})
	if err != nil {
		t.Fatalf("acquire mic test: %v", err)
	}

	if call.Released() || mic.Released() {
		t.Fatalf("purposes must not evict each other")
	}
	m.ReleaseAll()
	if n := backend.LiveTracks(); n != 0 {
		t.Fatalf("expected 0 live tracks after ReleaseAll, got %d", n)
	}
}

func TestAcquire_ConstraintFailureRetriesMinimal(t *testing.T) {
	backend := &FakeBackend{FailKind: KindConstraintsUnsatisfiable, FailOnce: true}
	m := newTestManager(t, backend)

	acq, err := m.Acquire(context.Background(), PurposeCall, Constraints{Video: true, Width: 3840, Height: 2160})
	if err != nil {
		t.Fatalf("expected fallback acquire to succeed, got %v", err)
	}
	defer acq.Release()

	if calls := backend.OpenCalls(); calls != 2 {
		t.Fatalf("expected ideal + minimal open calls, got %d", calls)
	}
}

func TestAcquire_PermissionDeniedDoesNotRetry(t *testing.T) {
	backend := &FakeBackend{FailKind: KindPermissionDenied}
	m := newTestManager(t, backend)

	_, err := m.Acquire(context.Background(), PurposeCall, Constraints{Video: true})
	if err == nil {
		t.Fatalf("expected error")
	}
	if KindOf(err) != KindPermissionDenied {
		t.Fatalf("expected permission_denied, got %s", KindOf(err))
	}
	if calls := backend.OpenCalls(); calls != 1 {
		t.Fatalf("permission failures must not retry, got %d open calls", calls)
	}
}

func TestToggle_WithoutTrackReportsFalse(t *testing.T) {
	backend := &FakeBackend{}
	m := newTestManager(t, backend)

	acq, err := m.Acquire(context.Background(), PurposeCall, Constraints{Audio: true})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer acq.Release()

	if acq.SetVideoEnabled(false) {
		t.Fatalf("no video track held; toggle must report false")
	}
	if !acq.SetAudioEnabled(false) {
		t.Fatalf("audio track held; toggle must report true")
	}
	if acq.AudioEnabled() {
		t.Fatalf("audio should be disabled")
	}
}

func TestRemediation_MessagesAreDistinct(t *testing.T) {
	kinds := []ErrorKind{
		KindPermissionDenied,
		KindDeviceNotFound,
		KindDeviceBusy,
		KindConstraintsUnsatisfiable,
		KindEnvironmentInsecure,
		KindUnsupported,
	}
	seen := make(map[string]ErrorKind, len(kinds))
	for _, k := range kinds {
		msg := k.Remediation()
		if msg == "" {
			t.Fatalf("missing remediation for %s", k)
		}
		if prev, dup := seen[msg]; dup {
			t.Fatalf("kinds %s and %s share a remediation message", prev, k)
		}
		seen[msg] = k
	}
}

func TestCheckSecureOrigin(t *testing.T) {
	cases := []struct {
		origin string
		ok     bool
	}{
		{"https://desk.example.com", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"http://desk.example.com", false},
		{"", true},
	}
	for _, tc := range cases {
		err := checkSecureOrigin(tc.origin, Constraints{Video: true})
		if tc.ok && err != nil {
			t.Fatalf("origin %q: unexpected %v", tc.origin, err)
		}
		if !tc.ok {
			if KindOf(err) != KindEnvironmentInsecure {
				t.Fatalf("origin %q: expected environment_insecure, got %v", tc.origin, err)
			}
		}
	}
}

// gatedBackend parks every Open call until the gate opens, so a test can
// line up concurrent acquisitions.
type gatedBackend struct {
	inner   FakeBackend
	entered chan struct{}
	gate    chan struct{}
}

func (b *gatedBackend) Open(ctx context.Context, c Constraints) ([]Track, error) {
	b.entered <- struct{}{}
	<-b.gate
	return b.inner.Open(ctx, c)
}

func TestAcquire_ConcurrentSamePurposeKeepsOneLive(t *testing.T) {
	backend := &gatedBackend{
		entered: make(chan struct{}, 2),
		gate:    make(chan struct{}),
	}
	m, err := NewManager(backend, nil)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	results := make(chan *Acquisition, 2)
	for i := 0; i < 2; i++ {
		go func() {
			acq, err := m.Acquire(context.Background(), PurposeCall, Constraints{Video: true, Audio: true})
			if err != nil {
				t.Errorf("acquire: %v", err)
			}
			results <- acq
		}()
	}

	<-backend.entered
	close(backend.gate)

	a, b := <-results, <-results
	live := 0
	for _, acq := range []*Acquisition{a, b} {
		if acq != nil && !acq.Released() {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live acquisition, got %d", live)
	}
	if n := backend.inner.LiveTracks(); n != 2 {
		t.Fatalf("expected 2 live tracks for the surviving handle, got %d", n)
	}
	held := m.Held(PurposeCall)
	if held == nil || held.Released() {
		t.Fatalf("expected the purpose slot to hold the surviving acquisition")
	}
}
