package usecase

import (
	"errors"
	"strings"
	"testing"
	"time"

	"skyvox/internal/domain"
)

type listeningHarness struct {
	controller *ListeningController
	recognizer *fakeRecognizer
	provider   *fakeProvider
	events     *fakeEventSink
	utterances []string
	stops      int
}

func newListeningHarness(t *testing.T) *listeningHarness {
	t.Helper()
	h := &listeningHarness{
		recognizer: &fakeRecognizer{},
		events:     &fakeEventSink{},
	}
	h.provider = &fakeProvider{available: true, recognizer: h.recognizer}
	h.controller = NewListeningController(h.provider, h.events, ListeningCallbacks{
		OnCommandRecognized: func(utterance string) { h.utterances = append(h.utterances, utterance) },
		OnListenStop:        func() { h.stops++ },
	}, ListeningConfig{}, discardLogger())
	return h
}

func (h *listeningHarness) listen(t *testing.T) {
	t.Helper()
	h.controller.RequestStart()
	h.recognizer.emitStart()
	if !h.controller.Status().Listening {
		t.Fatalf("expected listening after start confirmation")
	}
}

func TestListeningControllerRequestsContinuousInterimRecognition(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	if !h.controller.Supported() {
		t.Fatalf("expected supported controller")
	}
	if !h.provider.opts.Continuous || !h.provider.opts.InterimResults || h.provider.opts.Language != "en-US" {
		t.Fatalf("unexpected recognizer options: %+v", h.provider.opts)
	}
	if h.recognizer.detached() {
		t.Fatalf("expected handlers to be attached")
	}
}

func TestListeningControllerStartWaitsForConfirmation(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.controller.RequestStart()
	h.controller.RequestStart()

	if start, _ := h.recognizer.counts(); start != 1 {
		t.Fatalf("expected exactly one start request, got %d", start)
	}
	status := h.controller.Status()
	if status.Listening || !status.Starting {
		t.Fatalf("expected starting but not listening, got %+v", status)
	}

	h.recognizer.emitStart()
	status = h.controller.Status()
	if !status.Listening || status.Starting {
		t.Fatalf("expected listening after confirmation, got %+v", status)
	}
	if status.SessionID == "" {
		t.Fatalf("expected a session id once listening")
	}

	h.controller.RequestStart()
	if start, _ := h.recognizer.counts(); start != 1 {
		t.Fatalf("start while listening must be a no-op, got %d calls", start)
	}
}

func TestListeningControllerStopWhenNotListeningIsNoop(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	before := h.controller.Status()
	h.controller.RequestStop()

	if _, stop := h.recognizer.counts(); stop != 0 {
		t.Fatalf("expected no stop request, got %d", stop)
	}
	if after := h.controller.Status(); after != before {
		t.Fatalf("state changed on no-op stop: %+v -> %+v", before, after)
	}

	h.controller.RequestStart()
	h.controller.RequestStop()
	if _, stop := h.recognizer.counts(); stop != 0 {
		t.Fatalf("stop while only starting must be a no-op, got %d", stop)
	}
	if !h.controller.Status().Starting {
		t.Fatalf("no-op stop must leave the starting guard untouched")
	}
}

func TestListeningControllerStopIsOptimistic(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)

	h.controller.RequestStop()
	if _, stop := h.recognizer.counts(); stop != 1 {
		t.Fatalf("expected one stop request, got %d", stop)
	}
	status := h.controller.Status()
	if status.Listening || status.Starting {
		t.Fatalf("expected stopped state before end event, got %+v", status)
	}

	h.recognizer.emitEnd()
	if h.stops != 1 {
		t.Fatalf("expected listen-stop notification, got %d", h.stops)
	}
}

func TestListeningControllerStopFailureIsReported(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)
	h.recognizer.stopErr = errors.New("device busy")

	h.controller.RequestStop()
	status := h.controller.Status()
	if status.Listening {
		t.Fatalf("expected listening=false even when stop fails")
	}
	if status.Error == nil || !strings.Contains(status.Error.Message, "device busy") {
		t.Fatalf("expected stop error to be recorded, got %+v", status.Error)
	}
}

func TestListeningControllerPermissionDenied(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)

	h.recognizer.emitError("not-allowed")
	status := h.controller.Status()
	if status.Listening || status.Starting {
		t.Fatalf("expected stopped after error, got %+v", status)
	}
	if status.Error == nil || status.Error.Kind != domain.ErrorKindPermissionDenied {
		t.Fatalf("expected permission-denied, got %+v", status.Error)
	}
	if !strings.Contains(strings.ToLower(status.Error.Message), "microphone access") {
		t.Fatalf("expected microphone permission message, got %q", status.Error.Message)
	}
	errs := h.events.snapshotErrors()
	if len(errs) != 1 || errs[0].Code != "not-allowed" {
		t.Fatalf("expected one session error event, got %+v", errs)
	}
}

func TestListeningControllerRecoversAfterErrorAndEnd(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.controller.RequestStart()
	h.recognizer.emitError("network")
	h.recognizer.emitEnd()

	status := h.controller.Status()
	if status.Starting || status.Listening {
		t.Fatalf("expected idle after error+end, got %+v", status)
	}
	if status.Error == nil || status.Error.Kind != domain.ErrorKindNetwork {
		t.Fatalf("expected network error to persist after end, got %+v", status.Error)
	}

	h.listen(t)
	if start, _ := h.recognizer.counts(); start != 2 {
		t.Fatalf("expected a second start request, got %d", start)
	}
	if h.controller.Status().Error != nil {
		t.Fatalf("expected error cleared by a confirmed start")
	}
}

func TestListeningControllerSynchronousStartFailure(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.recognizer.startErr = errors.New("invalid state")

	h.controller.RequestStart()
	status := h.controller.Status()
	if status.Starting || status.Listening {
		t.Fatalf("expected guard reset after sync failure, got %+v", status)
	}
	if status.Error == nil || !strings.Contains(status.Error.Message, "Failed to start listening") {
		t.Fatalf("expected start failure message, got %+v", status.Error)
	}

	h.recognizer.startErr = nil
	h.controller.RequestStart()
	if start, _ := h.recognizer.counts(); start != 2 {
		t.Fatalf("expected retry to reach the engine, got %d", start)
	}
}

func TestListeningControllerSynchronousConfirmation(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.recognizer.confirmOnCall = true
	h.controller.RequestStart()
	status := h.controller.Status()
	if !status.Listening || status.Starting {
		t.Fatalf("expected listening when the engine confirms inside Start, got %+v", status)
	}
}

func TestListeningControllerResultsForwardFinalUtterance(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)

	h.recognizer.emitResult(0, domain.RecognitionResult{Transcript: "go for"})
	if got := h.controller.Status().Interim; got != "go for" {
		t.Fatalf("unexpected interim: %q", got)
	}
	if len(h.utterances) != 0 {
		t.Fatalf("interim results must not be forwarded")
	}

	h.recognizer.emitResult(0,
		domain.RecognitionResult{Transcript: " go forward ", Final: true},
		domain.RecognitionResult{Transcript: "and"},
	)
	if len(h.utterances) != 1 || h.utterances[0] != "go forward" {
		t.Fatalf("unexpected forwarded utterances: %q", h.utterances)
	}
	status := h.controller.Status()
	if status.Interim != "" || status.Transcript != "go forward" {
		t.Fatalf("unexpected transcript state: %+v", status)
	}

	partials := h.events.snapshotPartials()
	if len(partials) < 2 || partials[len(partials)-1] != "" {
		t.Fatalf("expected interim display to be cleared last, got %q", partials)
	}
}

func TestListeningControllerResultsHonourResultIndex(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)

	h.recognizer.emitResult(1,
		domain.RecognitionResult{Transcript: "take off", Final: true},
		domain.RecognitionResult{Transcript: "turn ", Final: true},
		domain.RecognitionResult{Transcript: "left", Final: true},
	)
	if len(h.utterances) != 1 || h.utterances[0] != "turn left" {
		t.Fatalf("expected only new finals to be joined, got %q", h.utterances)
	}

	h.recognizer.emitResult(5, domain.RecognitionResult{Transcript: "ignored", Final: true})
	h.recognizer.emitResult(0, domain.RecognitionResult{Transcript: "   ", Final: true})
	if len(h.utterances) != 1 {
		t.Fatalf("empty finals must not be forwarded, got %q", h.utterances)
	}
}

func TestListeningControllerServiceInitiatedEnd(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)
	h.recognizer.emitResult(0, domain.RecognitionResult{Transcript: "hel"})

	h.recognizer.emitEnd()
	status := h.controller.Status()
	if status.Listening || status.Interim != "" || status.SessionID != "" {
		t.Fatalf("unexpected state after end: %+v", status)
	}
	if h.stops != 1 {
		t.Fatalf("expected listen-stop notification")
	}

	h.recognizer.emitEnd()
	if h.stops != 2 {
		t.Fatalf("listen-stop must be notified regardless of state, got %d", h.stops)
	}
}

func TestListeningControllerUnsupported(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	c := NewListeningController(&fakeProvider{available: false}, events, ListeningCallbacks{}, ListeningConfig{}, discardLogger())
	if c.Supported() {
		t.Fatalf("expected unsupported")
	}
	c.RequestStart()
	c.RequestStop()
	c.Close()
	if c.Status().Starting || c.Status().Listening {
		t.Fatalf("unsupported controller changed state")
	}

	nilProvider := NewListeningController(nil, events, ListeningCallbacks{}, ListeningConfig{}, discardLogger())
	if nilProvider.Supported() {
		t.Fatalf("expected unsupported with nil provider")
	}

	failing := &fakeProvider{available: true, err: errors.New("no engine")}
	c = NewListeningController(failing, events, ListeningCallbacks{}, ListeningConfig{}, discardLogger())
	if c.Supported() || failing.calls != 1 {
		t.Fatalf("expected unsupported when the engine cannot be created")
	}
}

func TestListeningControllerCloseDetachesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.listen(t)

	h.controller.Close()
	h.controller.Close()
	if _, stop := h.recognizer.counts(); stop != 1 {
		t.Fatalf("expected a single stop on close, got %d", stop)
	}
	if !h.recognizer.detached() {
		t.Fatalf("expected handlers to be detached")
	}
	if h.controller.Status().Listening {
		t.Fatalf("expected not listening after close")
	}

	h.controller.RequestStart()
	if start, _ := h.recognizer.counts(); start != 1 {
		t.Fatalf("start after close must be a no-op")
	}
}

func TestListeningControllerCloseWithoutStart(t *testing.T) {
	t.Parallel()

	h := newListeningHarness(t)
	h.recognizer.stopErr = errors.New("not started")
	h.controller.Close()
	if _, stop := h.recognizer.counts(); stop != 1 {
		t.Fatalf("expected close to request stop unconditionally")
	}
	if len(h.events.snapshotErrors()) != 0 {
		t.Fatalf("close must not surface stop errors")
	}
}

func TestListeningControllerDebouncesPartials(t *testing.T) {
	t.Parallel()

	recognizer := &fakeRecognizer{}
	events := &fakeEventSink{}
	c := NewListeningController(&fakeProvider{available: true, recognizer: recognizer}, events,
		ListeningCallbacks{}, ListeningConfig{PartialDebounce: 20 * time.Millisecond}, discardLogger())
	c.RequestStart()
	recognizer.emitStart()

	recognizer.emitResult(0, domain.RecognitionResult{Transcript: "g"})
	recognizer.emitResult(0, domain.RecognitionResult{Transcript: "go"})
	recognizer.emitResult(0, domain.RecognitionResult{Transcript: "go up"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if partials := events.snapshotPartials(); len(partials) > 0 {
			if len(partials) != 1 || partials[0] != "go up" {
				t.Fatalf("expected only the latest partial, got %q", partials)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("debounced partial never emitted")
}

func TestClassifyRecognitionError(t *testing.T) {
	t.Parallel()

	cases := map[string]domain.ErrorKind{
		"not-allowed":            domain.ErrorKindPermissionDenied,
		"service-not-allowed":    domain.ErrorKindPermissionDenied,
		"no-speech":              domain.ErrorKindNoSpeech,
		"audio-capture":          domain.ErrorKindAudioCapture,
		"network":                domain.ErrorKindNetwork,
		"aborted":                domain.ErrorKindUnknown,
		"language-not-supported": domain.ErrorKindUnknown,
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(code, func(t *testing.T) {
			t.Parallel()
			got := classifyRecognitionError(code)
			if got.Kind != want || got.Code != code || got.Message == "" {
				t.Fatalf("unexpected classification: %+v", got)
			}
		})
	}

	if got := classifyRecognitionError("bad-grammar"); got.Message != "Error: bad-grammar." {
		t.Fatalf("unexpected generic message: %q", got.Message)
	}
	if domain.ErrorKindPermissionDenied.Recoverable() || !domain.ErrorKindNoSpeech.Recoverable() {
		t.Fatalf("unexpected recoverability")
	}
}

func TestListeningControllerWithoutEventSink(t *testing.T) {
	t.Parallel()

	recognizer := &fakeRecognizer{}
	var utterances []string
	c := NewListeningController(&fakeProvider{available: true, recognizer: recognizer}, nil, ListeningCallbacks{
		OnCommandRecognized: func(utterance string) { utterances = append(utterances, utterance) },
	}, ListeningConfig{}, discardLogger())

	c.RequestStart()
	recognizer.emitStart()
	recognizer.emitResult(0, domain.RecognitionResult{Transcript: "go"})
	recognizer.emitResult(0, domain.RecognitionResult{Transcript: "go up", Final: true})
	recognizer.emitError("network")
	recognizer.emitEnd()

	if len(utterances) != 1 || utterances[0] != "go up" {
		t.Fatalf("unexpected utterances: %v", utterances)
	}
	if c.Status().Listening {
		t.Fatalf("expected session to end")
	}
}
