// Package call owns the lifecycle of one live communication session on the
// local endpoint: the state machine, device orchestration, ring cue, and the
// mirror of remote transitions observed through the signaling channel.
package call

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"helpdesk-live/internal/media"
	"helpdesk-live/internal/signaling"
)

// State is the local session lifecycle. Declined and Ended are terminal.
type State string

const (
	StateIdle      State = "idle"
	StateRinging   State = "ringing"
	StateConnected State = "connected"
	StateDeclined  State = "declined"
	StateEnded     State = "ended"
)

func (s State) Terminal() bool { return s == StateDeclined || s == StateEnded }

var (
	// ErrNotIdle rejects Start once a session exists.
	ErrNotIdle = errors.New("call: session already started")

	// ErrNotRinging rejects transitions that require the ringing state.
	ErrNotRinging = errors.New("call: session is not ringing")

	// ErrNoMedia reports a device toggle with no acquisition held. The call
	// itself continues.
	ErrNoMedia = errors.New("call: no media acquisition held")
)

// Signaler is the slice of the sync client the controller drives.
type Signaler interface {
	CreateCall(ctx context.Context, caller, receiver signaling.Peer) (signaling.CallSession, error)
	Answer(ctx context.Context, callID string) error
	Decline(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
	Subscribe(email string, onChange func([]signaling.CallSession)) (cancel func())
}

// Ringer plays the outgoing-call cue.
type Ringer interface {
	Start()
	Stop()
}

// Devices is the slice of the media manager the controller uses.
type Devices interface {
	Acquire(ctx context.Context, purpose media.Purpose, c media.Constraints) (*media.Acquisition, error)
	Release(purpose media.Purpose)
}

// Snapshot is the controller's externally visible view after any operation.
type Snapshot struct {
	State        State
	CallID       string
	Peer         signaling.Peer
	HasMedia     bool
	VideoEnabled bool
	AudioEnabled bool

	// MediaRemedy is the user-facing remediation message for the most
	// recent acquisition failure, empty while media is healthy.
	MediaRemedy string
}

// Options tune one controller.
type Options struct {
	// AutoAcceptAfter connects the session locally after this delay while
	// still ringing. Zero disables it.
	AutoAcceptAfter time.Duration

	// Constraints for the call acquisition. Zero value asks for both
	// camera and microphone.
	Constraints media.Constraints

	// OnUpdate, when set, receives a snapshot after every state change.
	// Called without internal locks held.
	OnUpdate func(Snapshot)

	// AcquireTimeout bounds one device acquisition attempt.
	AcquireTimeout time.Duration
}

// Controller drives a single call. Construct one per call attempt; a
// terminal controller stays terminal.
type Controller struct {
	self    signaling.Peer
	sig     Signaler
	devices Devices
	ringer  Ringer
	log     *slog.Logger
	opts    Options

	mu          sync.Mutex
	state       State
	callID      string
	peer        signaling.Peer
	acq         *media.Acquisition
	mediaRemedy string
	acquireGen  int

	unsubscribe func()
	autoTimer   *time.Timer
}

func NewController(self signaling.Peer, sig Signaler, devices Devices, ringer Ringer, log *slog.Logger, opts Options) *Controller {
	if log == nil {
		log = slog.Default()
	}
	if !opts.Constraints.Video && !opts.Constraints.Audio {
		opts.Constraints = media.Constraints{Video: true, Audio: true}
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 30 * time.Second
	}
	return &Controller{
		self:    self,
		sig:     sig,
		devices: devices,
		ringer:  ringer,
		log:     log,
		opts:    opts,
		state:   StateIdle,
	}
}

// Start dials the peer: registers a ringing session with the signaling
// store, starts the ring cue, and kicks off device acquisition in the
// background so the caller's UI never waits on a permission prompt.
//
// A signaling failure degrades to a local-only call rather than aborting.
func (c *Controller) Start(ctx context.Context, receiver signaling.Peer) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.state = StateRinging
	c.peer = receiver
	c.mu.Unlock()

	callID := ""
	session, err := c.sig.CreateCall(ctx, c.self, receiver)
	if err != nil {
		c.log.Warn("signaling create failed, continuing local-only", "receiver", receiver.Email, "err", err)
	} else {
		callID = session.CallID
	}

	c.mu.Lock()
	if c.state.Terminal() {
		// Ended while the create round-trip was in flight.
		c.mu.Unlock()
		if callID != "" {
			c.bestEffort(func(ctx context.Context) error { return c.sig.EndCall(ctx, callID) })
		}
		return nil
	}
	c.callID = callID
	if callID != "" {
		c.unsubscribe = c.sig.Subscribe(c.self.Email, c.handleRemote)
	}
	if c.opts.AutoAcceptAfter > 0 {
		c.autoTimer = time.AfterFunc(c.opts.AutoAcceptAfter, c.autoAccept)
	}
	gen := c.acquireGen
	c.mu.Unlock()

	c.ringer.Start()
	go c.acquire(gen)

	// End can land between releasing the lock and starting the cue; a
	// terminal session must not keep ringing.
	c.mu.Lock()
	endedMeanwhile := c.state.Terminal()
	c.mu.Unlock()
	if endedMeanwhile {
		c.ringer.Stop()
	}

	c.notify()

	c.log.Info("call started", "call_id", callID, "receiver", receiver.Email)
	return nil
}

// MarkConnected moves a ringing session to connected and stops the ring
// cue. The answered transition is mirrored to the signaling store.
func (c *Controller) MarkConnected(ctx context.Context) error {
	return c.connect(ctx, true)
}

func (c *Controller) connect(ctx context.Context, notifyRemote bool) error {
	c.mu.Lock()
	if c.state != StateRinging {
		c.mu.Unlock()
		return ErrNotRinging
	}
	c.state = StateConnected
	c.stopAutoTimerLocked()
	callID := c.callID
	c.mu.Unlock()

	c.ringer.Stop()
	if notifyRemote && callID != "" {
		if err := c.sig.Answer(ctx, callID); err != nil {
			c.log.Warn("answer not mirrored to signaling", "call_id", callID, "err", err)
		}
	}
	c.notify()
	c.log.Info("call connected", "call_id", callID)
	return nil
}

// Decline rejects a ringing session. Terminal.
func (c *Controller) Decline(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRinging {
		c.mu.Unlock()
		return ErrNotRinging
	}
	callID := c.teardownLocked(StateDeclined)
	c.mu.Unlock()

	c.ringer.Stop()
	if callID != "" {
		if err := c.sig.Decline(ctx, callID); err != nil {
			c.log.Warn("decline not mirrored to signaling", "call_id", callID, "err", err)
		}
	}
	c.notify()
	return nil
}

// End terminates the session from any state. Idempotent: ending an already
// terminal session does nothing and returns nil.
func (c *Controller) End(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return nil
	}
	callID := c.teardownLocked(StateEnded)
	c.mu.Unlock()

	c.ringer.Stop()
	if callID != "" {
		if err := c.sig.EndCall(ctx, callID); err != nil {
			c.log.Warn("end not mirrored to signaling", "call_id", callID, "err", err)
		}
	}
	c.notify()
	c.log.Info("call ended", "call_id", callID)
	return nil
}

// teardownLocked moves to a terminal state and synchronously releases every
// held resource: the acquisition, the poller, and the auto-accept timer.
func (c *Controller) teardownLocked(to State) (callID string) {
	c.state = to
	c.acquireGen++
	c.stopAutoTimerLocked()
	if c.unsubscribe != nil {
		unsub := c.unsubscribe
		c.unsubscribe = nil
		// The poller joins on cancel; leaving the lock avoids holding it
		// across that wait.
		go unsub()
	}
	c.acq = nil
	c.devices.Release(media.PurposeCall)
	return c.callID
}

func (c *Controller) stopAutoTimerLocked() {
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
}

// ToggleVideo flips the camera track without re-acquiring the device.
func (c *Controller) ToggleVideo() (bool, error) {
	return c.toggle(func(a *media.Acquisition) bool {
		return a.SetVideoEnabled(!a.VideoEnabled())
	}, func(a *media.Acquisition) bool { return a.VideoEnabled() })
}

// ToggleAudio flips the microphone track (mute).
func (c *Controller) ToggleAudio() (bool, error) {
	return c.toggle(func(a *media.Acquisition) bool {
		return a.SetAudioEnabled(!a.AudioEnabled())
	}, func(a *media.Acquisition) bool { return a.AudioEnabled() })
}

func (c *Controller) toggle(flip func(*media.Acquisition) bool, state func(*media.Acquisition) bool) (bool, error) {
	c.mu.Lock()
	acq := c.acq
	terminal := c.state.Terminal()
	c.mu.Unlock()

	if terminal || acq == nil || acq.Released() {
		return false, ErrNoMedia
	}
	if !flip(acq) {
		return false, ErrNoMedia
	}
	c.notify()
	return state(acq), nil
}

// RetryAcquire re-runs device acquisition after a failure, for the "retry
// device" affordance. No-op when media is already held or the session is
// terminal.
func (c *Controller) RetryAcquire() {
	c.mu.Lock()
	if c.state.Terminal() || c.acq != nil {
		c.mu.Unlock()
		return
	}
	c.acquireGen++
	gen := c.acquireGen
	c.mu.Unlock()

	go c.acquire(gen)
}

// acquire runs off the caller's goroutine. A failure leaves the call in
// place with a remediation message; audio-only or signaling-only
// participation is still valid.
func (c *Controller) acquire(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.AcquireTimeout)
	defer cancel()

	acq, err := c.devices.Acquire(ctx, media.PurposeCall, c.opts.Constraints)

	c.mu.Lock()
	if gen != c.acquireGen || c.state.Terminal() {
		c.mu.Unlock()
		if err == nil {
			acq.Release()
		}
		return
	}
	if err != nil {
		c.mediaRemedy = media.KindOf(err).Remediation()
		c.mu.Unlock()
		c.log.Warn("media acquisition failed", "call_id", c.callID, "err", err)
		c.notify()
		return
	}
	c.acq = acq
	c.mediaRemedy = ""
	c.mu.Unlock()

	c.notify()
	c.log.Info("media acquired", "call_id", c.callID)
}

func (c *Controller) autoAccept() {
	if err := c.connect(context.Background(), true); err != nil && !errors.Is(err, ErrNotRinging) {
		c.log.Warn("auto accept failed", "err", err)
	}
}

// handleRemote mirrors transitions made by the other endpoint: answered
// connects, declined and ended tear the session down without re-notifying
// the store.
func (c *Controller) handleRemote(sessions []signaling.CallSession) {
	c.mu.Lock()
	callID := c.callID
	state := c.state
	c.mu.Unlock()
	if callID == "" || state.Terminal() {
		return
	}

	for _, s := range sessions {
		if s.CallID != callID {
			continue
		}
		switch s.Status {
		case signaling.CallStatusAnswered:
			if err := c.connect(context.Background(), false); err != nil && !errors.Is(err, ErrNotRinging) {
				c.log.Warn("remote answer not applied", "call_id", callID, "err", err)
			}
		case signaling.CallStatusDeclined:
			c.terminalFromRemote(StateDeclined)
		case signaling.CallStatusEnded:
			c.terminalFromRemote(StateEnded)
		}
		return
	}
}

func (c *Controller) terminalFromRemote(to State) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	callID := c.teardownLocked(to)
	c.mu.Unlock()

	c.ringer.Stop()
	c.notify()
	c.log.Info("remote endpoint closed call", "call_id", callID, "state", to)
}

// Snapshot returns the current view for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:       c.state,
		CallID:      c.callID,
		Peer:        c.peer,
		MediaRemedy: c.mediaRemedy,
	}
	if c.acq != nil && !c.acq.Released() {
		snap.HasMedia = true
		snap.VideoEnabled = c.acq.VideoEnabled()
		snap.AudioEnabled = c.acq.AudioEnabled()
	}
	return snap
}

func (c *Controller) notify() {
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(c.Snapshot())
	}
}

func (c *Controller) bestEffort(op func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := op(ctx); err != nil {
		c.log.Warn("signaling cleanup failed", "err", err)
	}
}
