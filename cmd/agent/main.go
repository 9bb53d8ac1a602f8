// Command agent is the desk-side call client: it dials a peer through the
// signaling API, rings until the remote endpoint answers, and mirrors remote
// transitions observed by polling.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-live/internal/call"
	"helpdesk-live/internal/media"
	"helpdesk-live/internal/ringtone"
	"helpdesk-live/internal/signaling"
	"helpdesk-live/pkg/audio"
	"helpdesk-live/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		serverURL  = flag.String("server", "http://localhost:8080", "signaling API base URL")
		token      = flag.String("token", "", "access token")
		selfEmail  = flag.String("from", "", "caller email")
		selfName   = flag.String("from-name", "", "caller display name")
		peerEmail  = flag.String("to", "", "receiver email")
		peerName   = flag.String("to-name", "", "receiver display name")
		pollEvery  = flag.Duration("poll", 2*time.Second, "call-state poll interval")
		autoAccept = flag.Duration("auto-accept", 0, "connect locally after this delay (0 disables)")
	)
	flag.Parse()

	if *selfEmail == "" || *peerEmail == "" {
		return fmt.Errorf("both -from and -to are required")
	}

	log := logger.New("local")

	client, err := signaling.NewClient(*serverURL, signaling.ClientOptions{
		PollInterval: *pollEvery,
		Logger:       logger.Component(log, "sync"),
		BearerToken:  func() string { return *token },
	})
	if err != nil {
		return err
	}
	defer client.Close()

	devices, err := media.NewManager(media.NewPlatformBackend(*serverURL), logger.Component(log, "media"))
	if err != nil {
		return err
	}
	defer devices.ReleaseAll()

	// A missing audio backend rings silently rather than blocking the call.
	var sink audio.Sink
	engine, err := audio.NewEngine(logger.Component(log, "audio"))
	if err != nil {
		log.Warn("audio engine unavailable", "err", err)
	} else {
		defer engine.Close()
		if sink, err = engine.OpenSink(audio.DefaultFormat); err != nil {
			log.Warn("ringtone sink unavailable", "err", err)
			sink = nil
		}
	}
	ringer := ringtone.New(sink, logger.Component(log, "ringtone"), ringtone.Options{})
	defer ringer.Stop()

	ctrl := call.NewController(
		signaling.Peer{Email: *selfEmail, Name: *selfName},
		client, devices, ringer,
		logger.Component(log, "call"),
		call.Options{
			AutoAcceptAfter: *autoAccept,
			OnUpdate: func(s call.Snapshot) {
				if s.MediaRemedy != "" {
					fmt.Println("devices:", s.MediaRemedy)
				}
				fmt.Printf("call %s: %s (video=%v audio=%v)\n", s.CallID, s.State, s.VideoEnabled, s.AudioEnabled)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx, signaling.Peer{Email: *peerEmail, Name: *peerName}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			endCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ctrl.End(endCtx)
		case <-time.After(200 * time.Millisecond):
			if ctrl.Snapshot().State.Terminal() {
				return nil
			}
		}
	}
}
