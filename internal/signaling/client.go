package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrUnavailable marks signaling-channel failures: network errors, non-JSON
// responses, or bodies without success:true. Callers degrade to local-only
// operation; nothing built on this error is fatal.
var ErrUnavailable = errors.New("signaling: unavailable")

// Peer identifies one call endpoint as the signaling store knows it.
type Peer struct {
	Email string
	Name  string
}

// ClientOptions tunes the sync client. Zero values get safe defaults.
type ClientOptions struct {
	HTTPClient   *http.Client
	PollInterval time.Duration
	Logger       *slog.Logger

	// BearerToken supplies the access token per request, so rotation does
	// not require a new client.
	BearerToken func() string
}

// Client propagates CallSession state across independent client instances
// through the signaling REST surface. Cross-endpoint visibility is bounded by
// PollInterval, not immediate.
//
// The client owns its polling timers: every Subscribe is paired with the
// returned cancel func, and at most one poller runs per subscribed identity.
type Client struct {
	baseURL  string
	http     *http.Client
	interval time.Duration
	token    func() string
	log      *slog.Logger

	mu      sync.Mutex
	pollers map[string]*poller
}

func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("signaling: base URL is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:  baseURL,
		http:     opts.HTTPClient,
		interval: opts.PollInterval,
		token:    opts.BearerToken,
		log:      opts.Logger,
		pollers:  make(map[string]*poller),
	}, nil
}

// CreateCall posts a new ringing session and returns it.
func (c *Client) CreateCall(ctx context.Context, caller, receiver Peer) (CallSession, error) {
	req := CreateCallRequest{
		CallerEmail:   caller.Email,
		CallerName:    caller.Name,
		ReceiverEmail: receiver.Email,
		ReceiverName:  receiver.Name,
	}
	env, err := c.do(ctx, http.MethodPost, "/video-calls", req)
	if err != nil {
		return CallSession{}, err
	}
	if env.Call == nil {
		return CallSession{}, fmt.Errorf("%w: response missing call", ErrUnavailable)
	}
	return *env.Call, nil
}

// Answer requests the answered transition. Success even when the session is
// already terminal server-side (the transition is a remote no-op).
func (c *Client) Answer(ctx context.Context, callID string) error {
	return c.transition(ctx, callID, "answer")
}

// Decline requests the declined transition.
func (c *Client) Decline(ctx context.Context, callID string) error {
	return c.transition(ctx, callID, "decline")
}

// EndCall requests the ended transition.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	return c.transition(ctx, callID, "end")
}

// FetchCall returns the current remote view of one session.
func (c *Client) FetchCall(ctx context.Context, callID string) (CallSession, error) {
	env, err := c.do(ctx, http.MethodGet, "/video-calls/"+url.PathEscape(callID), nil)
	if err != nil {
		return CallSession{}, err
	}
	if env.Call == nil {
		return CallSession{}, fmt.Errorf("%w: response missing call", ErrUnavailable)
	}
	return *env.Call, nil
}

// ListForUser returns every live session involving the user.
func (c *Client) ListForUser(ctx context.Context, email string) ([]CallSession, error) {
	env, err := c.do(ctx, http.MethodGet, "/video-calls/user/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, err
	}
	return env.Calls, nil
}

// Subscribe starts polling for sessions involving email, invoking onChange
// with the current set after every successful poll (changed or not). Failed
// polls are logged and skipped; sync silently stalls until the next success.
//
// The returned cancel stops the poller and deregisters the callback; failing
// to call it leaks a timer. Subscribing an identity that already has an
// active poller first cancels the previous one.
func (c *Client) Subscribe(email string, onChange func([]CallSession)) (cancel func()) {
	c.mu.Lock()
	if prev, ok := c.pollers[email]; ok {
		prev.stop()
	}
	p := &poller{
		client:   c,
		email:    email,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.pollers[email] = p
	c.mu.Unlock()

	go p.run()

	return func() {
		p.stop()
		c.mu.Lock()
		if c.pollers[email] == p {
			delete(c.pollers, email)
		}
		c.mu.Unlock()
	}
}

// Close cancels every active poller.
func (c *Client) Close() {
	c.mu.Lock()
	for email, p := range c.pollers {
		p.stop()
		delete(c.pollers, email)
	}
	c.mu.Unlock()
}

func (c *Client) transition(ctx context.Context, callID, action string) error {
	if callID == "" {
		return fmt.Errorf("%w: call id required", ErrUnavailable)
	}
	_, err := c.do(ctx, http.MethodPut, "/video-calls/"+url.PathEscape(callID)+"/"+action, nil)
	return err
}

type envelope struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Call    *CallSession  `json:"call"`
	Calls   []CallSession `json:"calls"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("%w: bad response (%d)", ErrUnavailable, resp.StatusCode)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return envelope{}, fmt.Errorf("%w: %s", ErrUnavailable, msg)
	}
	return env, nil
}

// poller is one subscription's timer loop.
type poller struct {
	client   *Client
	email    string
	onChange func([]CallSession)

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func (p *poller) stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}

func (p *poller) run() {
	defer close(p.done)

	// First observation immediately; steady state is one poll per interval.
	p.poll()

	ticker := time.NewTicker(p.client.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.client.interval)
	defer cancel()

	sessions, err := p.client.ListForUser(ctx, p.email)
	if err != nil {
		p.client.log.Warn("call sync poll failed", "user", p.email, "err", err)
		return
	}

	// Re-check after the network call so a cancelled subscription never
	// observes a late callback.
	select {
	case <-p.stopCh:
		return
	default:
	}
	p.onChange(sessions)
}
