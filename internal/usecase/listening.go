package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

// ListeningConfig controls the recognition engine a session requests.
type ListeningConfig struct {
	Language        string
	PartialDebounce time.Duration
}

// ListeningCallbacks receive the session's outputs. Either may be nil.
type ListeningCallbacks struct {
	OnCommandRecognized func(utterance string)
	OnListenStop        func()
}

// ListeningController owns the single recognition engine handle and keeps the
// intended listening state in sync with the engine's asynchronous events.
// Callbacks and sink events are always delivered outside the lock.
type ListeningController struct {
	events    ports.EventSink
	callbacks ListeningCallbacks
	partials  func(text string)
	logger    *slog.Logger

	supported  bool
	recognizer ports.SpeechRecognizer

	mu         sync.Mutex
	intended   bool
	starting   bool
	closed     bool
	sessionID  string
	interim    string
	transcript string
	lastError  *domain.SessionError
}

func NewListeningController(
	provider ports.RecognizerProvider,
	events ports.EventSink,
	callbacks ListeningCallbacks,
	cfg ListeningConfig,
	logger *slog.Logger,
) *ListeningController {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	events = sinkOrNop(events)

	c := &ListeningController{
		events:    events,
		callbacks: callbacks,
		partials:  newPartialEmitter(events, cfg.PartialDebounce),
		logger:    logger.With("component", "listening"),
	}

	if provider == nil || !provider.Available() {
		c.logger.Warn("speech recognition is not supported")
		return c
	}

	recognizer, err := provider.NewRecognizer(ports.RecognizerOptions{
		Language:       cfg.Language,
		Continuous:     true,
		InterimResults: true,
	})
	if err != nil {
		c.logger.Warn("speech recognizer unavailable", "err", err)
		return c
	}

	c.supported = true
	c.recognizer = recognizer
	recognizer.SetHandlers(ports.RecognitionHandlers{
		OnStart:  c.handleStart,
		OnResult: c.handleResult,
		OnError:  c.handleError,
		OnEnd:    c.handleEnd,
	})
	c.logger.Debug("speech recognizer created", "language", cfg.Language)
	return c
}

// Supported reports whether an engine could be created at construction.
func (c *ListeningController) Supported() bool {
	return c.supported
}

// RequestStart asks the engine to begin listening. Listening only becomes
// true once the engine confirms the start.
func (c *ListeningController) RequestStart() {
	c.mu.Lock()
	if !c.supported || c.closed || c.intended || c.starting {
		c.logger.Debug("skipping start",
			"supported", c.supported,
			"closed", c.closed,
			"listening", c.intended,
			"starting", c.starting,
		)
		c.mu.Unlock()
		return
	}
	c.starting = true
	c.lastError = nil
	c.interim = ""
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.ListeningChanged(status)
	c.logger.Debug("requesting recognition start")

	if err := c.recognizer.Start(); err != nil {
		c.mu.Lock()
		c.starting = false
		c.intended = false
		sessErr := domain.SessionError{
			Kind:    domain.ErrorKindUnknown,
			Code:    "start-failed",
			Message: fmt.Sprintf("Failed to start listening: %v", err),
		}
		c.lastError = &sessErr
		status := c.statusLocked()
		c.mu.Unlock()

		c.logger.Warn("recognition start failed", "err", err)
		c.events.SessionError(sessErr)
		c.events.ListeningChanged(status)
	}
}

// RequestStop stops listening immediately without waiting for the engine's
// end event. It does nothing unless listening is intended.
func (c *ListeningController) RequestStop() {
	c.mu.Lock()
	if c.closed || !c.intended || c.recognizer == nil {
		c.logger.Debug("skipping stop", "listening", c.intended, "closed", c.closed)
		c.mu.Unlock()
		return
	}
	c.intended = false
	c.starting = false
	c.mu.Unlock()

	c.logger.Debug("requesting recognition stop")
	if err := c.recognizer.Stop(); err != nil {
		sessErr := domain.SessionError{
			Kind:    domain.ErrorKindUnknown,
			Code:    "stop-failed",
			Message: fmt.Sprintf("Error stopping listening: %v", err),
		}
		c.mu.Lock()
		c.lastError = &sessErr
		c.mu.Unlock()

		c.logger.Warn("recognition stop failed", "err", err)
		c.events.SessionError(sessErr)
	}
	c.events.ListeningChanged(c.Status())
}

// Close stops the engine and detaches every handler. It is idempotent.
func (c *ListeningController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.intended = false
	c.starting = false
	recognizer := c.recognizer
	c.mu.Unlock()

	if recognizer == nil {
		return
	}
	if err := recognizer.Stop(); err != nil {
		c.logger.Debug("recognition stop on close failed", "err", err)
	}
	recognizer.SetHandlers(ports.RecognitionHandlers{})
	c.logger.Debug("listening controller closed")
}

// Status returns a snapshot of the session.
func (c *ListeningController) Status() domain.ListeningStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *ListeningController) statusLocked() domain.ListeningStatus {
	status := domain.ListeningStatus{
		Supported:  c.supported,
		Listening:  c.intended,
		Starting:   c.starting,
		SessionID:  c.sessionID,
		Interim:    c.interim,
		Transcript: c.transcript,
	}
	if c.lastError != nil {
		errCopy := *c.lastError
		status.Error = &errCopy
	}
	return status
}

func (c *ListeningController) handleStart() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.starting = false
	c.lastError = nil
	c.interim = ""
	c.sessionID = uuid.NewString()
	if !c.intended {
		c.intended = true
	}
	status := c.statusLocked()
	c.mu.Unlock()

	c.logger.Info("listening started", "session", status.SessionID)
	c.partials("")
	c.events.ListeningChanged(status)
}

func (c *ListeningController) handleResult(resultIndex int, results []domain.RecognitionResult) {
	if resultIndex < 0 {
		resultIndex = 0
	}
	if resultIndex > len(results) {
		resultIndex = len(results)
	}
	pending := results[resultIndex:]
	finals, interims := lo.FilterReject(pending, func(r domain.RecognitionResult, _ int) bool {
		return r.Final
	})
	final := strings.TrimSpace(joinTranscripts(finals))
	interim := joinTranscripts(interims)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.interim = interim
	if final != "" {
		c.transcript = final
		c.interim = ""
	}
	sessionID := c.sessionID
	c.mu.Unlock()

	c.partials(interim)
	if final == "" {
		return
	}

	c.logger.Info("final transcript", "session", sessionID, "text", final)
	c.events.FinalTranscript(final)
	if c.callbacks.OnCommandRecognized != nil {
		c.callbacks.OnCommandRecognized(final)
	}
	c.partials("")
}

func (c *ListeningController) handleError(code string, message string) {
	sessErr := classifyRecognitionError(code)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.starting = false
	c.lastError = &sessErr
	c.interim = ""
	wasListening := c.intended
	c.intended = false
	status := c.statusLocked()
	c.mu.Unlock()

	c.logger.Warn("recognition error",
		"code", code,
		"kind", sessErr.Kind,
		"detail", message,
		"wasListening", wasListening,
	)
	c.partials("")
	c.events.SessionError(sessErr)
	c.events.ListeningChanged(status)
}

func (c *ListeningController) handleEnd() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.starting = false
	c.interim = ""
	wasListening := c.intended
	c.intended = false
	sessionID := c.sessionID
	c.sessionID = ""
	status := c.statusLocked()
	c.mu.Unlock()

	c.logger.Info("listening ended", "session", sessionID, "serviceInitiated", wasListening)
	c.partials("")
	c.events.ListeningChanged(status)
	if c.callbacks.OnListenStop != nil {
		c.callbacks.OnListenStop()
	}
}

func joinTranscripts(results []domain.RecognitionResult) string {
	return strings.Join(lo.Map(results, func(r domain.RecognitionResult, _ int) string {
		return r.Transcript
	}), "")
}
