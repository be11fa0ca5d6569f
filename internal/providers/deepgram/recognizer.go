package deepgram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

// Recognizer is one continuous Deepgram recognition engine. A session dials
// the listen endpoint, starts microphone capture and streams audio until Stop
// is called or the stream fails. Every session ends with exactly one OnEnd.
type Recognizer struct {
	cfg     Config
	url     string
	capture ports.AudioCapture
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu       sync.Mutex
	handlers ports.RecognitionHandlers
	cancel   context.CancelFunc
}

func (r *Recognizer) SetHandlers(handlers ports.RecognitionHandlers) {
	r.mu.Lock()
	r.handlers = handlers
	r.mu.Unlock()
}

// Start returns immediately; OnStart fires once the stream and the microphone are live.
func (r *Recognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.run(ctx, cancel)
	return nil
}

// Stop ends the running session. OnEnd follows asynchronously.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (r *Recognizer) run(ctx context.Context, cancel context.CancelFunc) {
	code, err := r.listen(ctx)
	cancel()

	if err != nil && ctx.Err() == nil {
		r.logger.Warn("recognition failed", "code", code, "error", err)
	}

	r.mu.Lock()
	r.cancel = nil
	handlers := r.handlers
	r.mu.Unlock()

	if err != nil && code != "" && handlers.OnError != nil {
		handlers.OnError(code, err.Error())
	}
	if handlers.OnEnd != nil {
		handlers.OnEnd()
	}
}

// listen runs one session and returns the service error code that ended it, if any.
func (r *Recognizer) listen(ctx context.Context) (string, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, resp, err := r.dialer.DialContext(ctx, r.url, headers)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil
		}
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return domain.ServiceErrorNotAllowed, fmt.Errorf("api key rejected by Deepgram: %s", resp.Status)
		}
		return domain.ServiceErrorNetwork, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	stream := newStream(conn)

	audio, err := r.capture.Start(ctx, r.cfg.Audio)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return "", nil
		}
		return domain.ServiceErrorAudioCapture, fmt.Errorf("failed to start audio capture: %w", err)
	}
	defer func() {
		if err := audio.Stop(); err != nil {
			r.logger.Debug("audio capture stop", "error", err)
		}
	}()

	r.fire(func(h ports.RecognitionHandlers) {
		if h.OnStart != nil {
			h.OnStart()
		}
	})

	heard := make(chan struct{}, 1)
	readDone := make(chan error, 1)
	go func() {
		readDone <- stream.readLoop(heard, r.deliver)
	}()
	defer func() {
		_ = conn.Close()
		<-readDone
	}()

	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- stream.pump(audio, r.cfg.ChunkSize)
	}()

	var noSpeech <-chan time.Time
	if r.cfg.NoSpeechTimeout > 0 {
		timer := time.NewTimer(r.cfg.NoSpeechTimeout)
		defer timer.Stop()
		noSpeech = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = audio.Stop()
			stream.closeStream()
			return "", nil
		case <-heard:
			noSpeech = nil
		case <-noSpeech:
			return domain.ServiceErrorNoSpeech, errors.New("no speech was detected")
		case err := <-readDone:
			readDone <- err // drained again by the deferred close
			if err != nil {
				return domain.ServiceErrorNetwork, err
			}
			return "", nil
		case err := <-pumpDone:
			pumpDone = nil
			if err != nil {
				return domain.ServiceErrorAudioCapture, err
			}
			// Capture ended on its own; let Deepgram flush the last results.
			stream.closeStream()
		}
	}
}

func (r *Recognizer) deliver(resultIndex int, results []domain.RecognitionResult) {
	r.fire(func(h ports.RecognitionHandlers) {
		if h.OnResult != nil {
			h.OnResult(resultIndex, results)
		}
	})
}

func (r *Recognizer) fire(call func(ports.RecognitionHandlers)) {
	r.mu.Lock()
	handlers := r.handlers
	r.mu.Unlock()
	call(handlers)
}
