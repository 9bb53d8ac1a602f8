package media

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // registers the camera adapter
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // registers the microphone adapter
	"github.com/pion/mediadevices/pkg/prop"
)

// PlatformBackend opens real capture devices through pion/mediadevices.
type PlatformBackend struct {
	// Origin is the URL the hosting surface is served from. Device access
	// is refused on insecure non-local origins, matching what end users hit
	// in a browser context.
	Origin string
}

func NewPlatformBackend(origin string) *PlatformBackend {
	return &PlatformBackend{Origin: origin}
}

func (b *PlatformBackend) Open(ctx context.Context, c Constraints) ([]Track, error) {
	if err := checkSecureOrigin(b.Origin, c); err != nil {
		return nil, err
	}

	constraints := mediadevices.MediaStreamConstraints{}
	if c.Video {
		constraints.Video = func(mc *mediadevices.MediaTrackConstraints) {
			if c.Width > 0 {
				mc.Width = prop.Int(c.Width)
			}
			if c.Height > 0 {
				mc.Height = prop.Int(c.Height)
			}
			if c.FrameRate > 0 {
				mc.FrameRate = prop.Float(c.FrameRate)
			}
		}
	}
	if c.Audio {
		constraints.Audio = func(mc *mediadevices.MediaTrackConstraints) {
			if c.SampleRate > 0 {
				mc.SampleRate = prop.Int(c.SampleRate)
			}
			if c.ChannelCount > 0 {
				mc.ChannelCount = prop.Int(c.ChannelCount)
			}
		}
	}

	stream, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		return nil, &AcquireError{Kind: classifyPlatformError(err), Device: c.deviceLabel(), Err: err}
	}

	var tracks []Track
	for _, t := range stream.GetVideoTracks() {
		tracks = append(tracks, newPlatformTrack(t, TrackKindVideo))
	}
	for _, t := range stream.GetAudioTracks() {
		tracks = append(tracks, newPlatformTrack(t, TrackKindAudio))
	}
	return tracks, nil
}

// checkSecureOrigin enforces the secure-context requirement for device
// access: https always passes, http only for localhost-class hosts.
func checkSecureOrigin(origin string, c Constraints) error {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return nil
	}
	if u.Scheme == "https" {
		return nil
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".localhost") {
		return nil
	}
	return &AcquireError{Kind: KindEnvironmentInsecure, Device: c.deviceLabel()}
}

func classifyPlatformError(err error) ErrorKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return KindPermissionDenied
	case strings.Contains(msg, "constraint"):
		return KindConstraintsUnsatisfiable
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in use"):
		return KindDeviceBusy
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no driver") || strings.Contains(msg, "failed to find"):
		return KindDeviceNotFound
	default:
		return KindUnsupported
	}
}

// platformTrack wraps a mediadevices track behind the Track interface.
// mediadevices has no native enabled flag, so the toggle is tracked here and
// consumed by whatever forwards the track's data.
type platformTrack struct {
	src  mediadevices.Track
	kind TrackKind

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func newPlatformTrack(src mediadevices.Track, kind TrackKind) *platformTrack {
	return &platformTrack{src: src, kind: kind, enabled: true}
}

func (t *platformTrack) ID() string      { return t.src.ID() }
func (t *platformTrack) Kind() TrackKind { return t.kind }

func (t *platformTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *platformTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *platformTrack) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()
	return t.src.Close()
}
