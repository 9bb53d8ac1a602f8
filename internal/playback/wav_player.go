package playback

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/youpy/go-wav"

	"helpdesk-live/pkg/audio"
)

// SinkOpener produces a playback sink for a clip's format, usually
// audio.Engine.OpenSink.
type SinkOpener func(f audio.Format) (audio.Sink, error)

// WAVFactory decodes WAV clips fetched over HTTP or read from disk and plays
// them through the audio engine.
type WAVFactory struct {
	OpenSink SinkOpener
	Client   *http.Client
}

func (f *WAVFactory) NewPlayer(clipID, url string) (Player, error) {
	raw, err := f.fetch(url)
	if err != nil {
		return nil, err
	}

	r := wav.NewReader(bytes.NewReader(raw))
	format, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("playback: bad wav header for clip %s: %w", clipID, err)
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("playback: clip %s: %d-bit samples not supported", clipID, format.BitsPerSample)
	}
	pcm, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("playback: decode failed for clip %s: %w", clipID, err)
	}

	return &wavPlayer{
		pcm:      pcm,
		format:   audio.Format{SampleRate: int(format.SampleRate), Channels: int(format.NumChannels)},
		openSink: f.OpenSink,
	}, nil
}

func (f *WAVFactory) fetch(url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		client := f.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(url)
		if err != nil {
			return nil, fmt.Errorf("playback: fetch failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("playback: fetch returned status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(url)
}

// wavPlayer streams decoded PCM into a fresh sink per play, keeping the
// position across pauses and rewinding on Stop.
type wavPlayer struct {
	pcm      []byte
	format   audio.Format
	openSink SinkOpener

	mu      sync.Mutex
	pos     int
	playing bool
	stopCh  chan struct{}
}

func (p *wavPlayer) Start(onDone func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return nil
	}
	sink, err := p.openSink(p.format)
	if err != nil {
		return fmt.Errorf("playback: sink open failed: %w", err)
	}
	p.playing = true
	p.stopCh = make(chan struct{})
	go p.stream(sink, p.stopCh, onDone)
	return nil
}

func (p *wavPlayer) stream(sink audio.Sink, stopCh chan struct{}, onDone func()) {
	defer sink.Close()

	// Feed in 100ms slices so Stop takes effect promptly.
	step := p.format.BytesPerSecond() / 10
	if step <= 0 {
		step = len(p.pcm)
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		if p.pos >= len(p.pcm) {
			p.pos = 0
			p.playing = false
			p.mu.Unlock()
			onDone()
			return
		}
		end := p.pos + step
		if end > len(p.pcm) {
			end = len(p.pcm)
		}
		chunk := p.pcm[p.pos:end]
		p.pos = end
		p.mu.Unlock()

		if _, err := sink.Write(chunk); err != nil {
			p.mu.Lock()
			p.pos = 0
			p.playing = false
			p.mu.Unlock()
			onDone()
			return
		}

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

func (p *wavPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		p.pos = 0
		return
	}
	close(p.stopCh)
	p.stopCh = nil
	p.playing = false
	p.pos = 0
}

func (p *wavPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
