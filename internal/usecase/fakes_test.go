package usecase

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	available  bool
	recognizer *fakeRecognizer
	err        error
	opts       ports.RecognizerOptions
	calls      int
}

func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) NewRecognizer(opts ports.RecognizerOptions) (ports.SpeechRecognizer, error) {
	f.calls++
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.recognizer == nil {
		return nil, errors.New("no recognizer configured")
	}
	return f.recognizer, nil
}

type fakeRecognizer struct {
	mu            sync.Mutex
	handlers      ports.RecognitionHandlers
	setCalls      int
	startCalls    int
	stopCalls     int
	startErr      error
	stopErr       error
	confirmOnCall bool
}

func (f *fakeRecognizer) Start() error {
	f.mu.Lock()
	f.startCalls++
	err := f.startErr
	confirm := f.confirmOnCall
	f.mu.Unlock()
	if err == nil && confirm {
		f.emitStart()
	}
	return err
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeRecognizer) SetHandlers(handlers ports.RecognitionHandlers) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	f.handlers = handlers
}

func (f *fakeRecognizer) snapshotHandlers() ports.RecognitionHandlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

func (f *fakeRecognizer) detached() bool {
	h := f.snapshotHandlers()
	return h.OnStart == nil && h.OnResult == nil && h.OnError == nil && h.OnEnd == nil
}

func (f *fakeRecognizer) emitStart() {
	if h := f.snapshotHandlers(); h.OnStart != nil {
		h.OnStart()
	}
}

func (f *fakeRecognizer) emitResult(index int, results ...domain.RecognitionResult) {
	if h := f.snapshotHandlers(); h.OnResult != nil {
		h.OnResult(index, results)
	}
}

func (f *fakeRecognizer) emitError(code string) {
	if h := f.snapshotHandlers(); h.OnError != nil {
		h.OnError(code, "")
	}
}

func (f *fakeRecognizer) emitEnd() {
	if h := f.snapshotHandlers(); h.OnEnd != nil {
		h.OnEnd()
	}
}

func (f *fakeRecognizer) counts() (start int, stop int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.stopCalls
}

type fakeNormalizer struct {
	replace map[string]string
	err     error
}

func (f *fakeNormalizer) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	for from, to := range f.replace {
		text = strings.ReplaceAll(text, from, to)
	}
	return text, nil
}

type commandEvent struct {
	command domain.Command
	label   string
}

type fakeEventSink struct {
	mu sync.Mutex

	listening []domain.ListeningStatus
	partials  []string
	finals    []string
	commands  []commandEvent
	errors    []domain.SessionError
	frames    []domain.Frame
}

func (f *fakeEventSink) ListeningChanged(status domain.ListeningStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listening = append(f.listening, status)
}

func (f *fakeEventSink) PartialTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, text)
}

func (f *fakeEventSink) FinalTranscript(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, raw)
}

func (f *fakeEventSink) CommandChanged(command domain.Command, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, commandEvent{command: command, label: label})
}

func (f *fakeEventSink) SessionError(err domain.SessionError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, err)
}

func (f *fakeEventSink) FrameRendered(frame domain.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func (f *fakeEventSink) snapshotPartials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.partials))
	copy(out, f.partials)
	return out
}

func (f *fakeEventSink) snapshotErrors() []domain.SessionError {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SessionError, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) snapshotCommands() []commandEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]commandEvent, len(f.commands))
	copy(out, f.commands)
	return out
}

func (f *fakeEventSink) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}
