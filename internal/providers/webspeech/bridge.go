// Package webspeech relays the browser SpeechRecognition engine running in the
// frontend webview. Start and Stop become request events for the frontend;
// the frontend reports engine callbacks back through the Deliver methods.
package webspeech

import (
	"errors"
	"sync"

	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

// Events emitted towards the frontend.
const (
	EventStartRequest = "skyvox:recognition:start"
	EventStopRequest  = "skyvox:recognition:stop"
)

// ErrNotSupported is returned when the frontend reported no SpeechRecognition support.
var ErrNotSupported = errors.New("speech recognition is not supported by the webview")

// Emitter pushes an event to the frontend.
type Emitter interface {
	Emit(event string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any)

func (f EmitterFunc) Emit(event string, payload any) { f(event, payload) }

// Bridge implements ports.RecognizerProvider for the frontend engine.
type Bridge struct {
	emitter Emitter

	mu        sync.Mutex
	reported  bool
	supported bool
	active    *Recognizer
}

func NewBridge(emitter Emitter) *Bridge {
	return &Bridge{emitter: emitter}
}

// SetSupported records whether the frontend offers speech recognition.
func (b *Bridge) SetSupported(supported bool) {
	b.mu.Lock()
	b.reported = true
	b.supported = supported
	b.mu.Unlock()
}

// Reported reports whether the frontend has answered the capability check yet.
func (b *Bridge) Reported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reported
}

func (b *Bridge) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supported
}

// NewRecognizer replaces the active recognizer; the frontend hosts a single engine.
func (b *Bridge) NewRecognizer(opts ports.RecognizerOptions) (ports.SpeechRecognizer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.supported {
		return nil, ErrNotSupported
	}
	r := &Recognizer{bridge: b, opts: opts}
	b.active = r
	return r, nil
}

// DeliverStart relays the engine's start event.
func (b *Bridge) DeliverStart() {
	if h := b.handlers(); h.OnStart != nil {
		h.OnStart()
	}
}

// DeliverResult relays a result event.
func (b *Bridge) DeliverResult(resultIndex int, results []domain.RecognitionResult) {
	if h := b.handlers(); h.OnResult != nil {
		h.OnResult(resultIndex, results)
	}
}

// DeliverError relays an error event.
func (b *Bridge) DeliverError(code string, message string) {
	if h := b.handlers(); h.OnError != nil {
		h.OnError(code, message)
	}
}

// DeliverEnd relays the engine's end event.
func (b *Bridge) DeliverEnd() {
	if h := b.handlers(); h.OnEnd != nil {
		h.OnEnd()
	}
}

func (b *Bridge) handlers() ports.RecognitionHandlers {
	b.mu.Lock()
	active := b.active
	b.mu.Unlock()
	if active == nil {
		return ports.RecognitionHandlers{}
	}
	return active.currentHandlers()
}

// StartRequest is the payload of EventStartRequest.
type StartRequest struct {
	Language       string `json:"lang"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interimResults"`
}

// Recognizer forwards requests to the frontend engine.
type Recognizer struct {
	bridge *Bridge
	opts   ports.RecognizerOptions

	mu       sync.Mutex
	handlers ports.RecognitionHandlers
}

func (r *Recognizer) SetHandlers(handlers ports.RecognitionHandlers) {
	r.mu.Lock()
	r.handlers = handlers
	r.mu.Unlock()
}

func (r *Recognizer) Start() error {
	if !r.bridge.Available() {
		return ErrNotSupported
	}
	r.bridge.emitter.Emit(EventStartRequest, StartRequest{
		Language:       r.opts.Language,
		Continuous:     r.opts.Continuous,
		InterimResults: r.opts.InterimResults,
	})
	return nil
}

func (r *Recognizer) Stop() error {
	r.bridge.emitter.Emit(EventStopRequest, nil)
	return nil
}

func (r *Recognizer) currentHandlers() ports.RecognitionHandlers {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers
}
