package ports

import (
	"context"
	"io"

	"skyvox/internal/domain"
)

// RecognitionHandlers are the callback slots of a speech recognition engine.
// Any slot may be nil. Engines may invoke them from any goroutine.
type RecognitionHandlers struct {
	OnStart  func()
	OnResult func(resultIndex int, results []domain.RecognitionResult)
	OnError  func(code string, message string)
	OnEnd    func()
}

// RecognizerOptions configures a recognition engine instance.
type RecognizerOptions struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// SpeechRecognizer is one continuous-recognition engine instance.
// Start and Stop only request a transition; confirmation arrives through the handlers.
type SpeechRecognizer interface {
	Start() error
	Stop() error
	SetHandlers(handlers RecognitionHandlers)
}

// RecognizerProvider reports and creates recognition engines.
type RecognizerProvider interface {
	Available() bool
	NewRecognizer(opts RecognizerOptions) (SpeechRecognizer, error)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Normalizer rewrites a transcript before keyword spotting.
type Normalizer interface {
	Apply(text string) (string, error)
}

// OrbitControl is a manual camera control surface with a mutable look-at target.
type OrbitControl interface {
	Target() domain.Vec3
	SetTarget(target domain.Vec3)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	ListeningChanged(status domain.ListeningStatus)
	PartialTranscript(text string)
	FinalTranscript(raw string)
	CommandChanged(command domain.Command, label string)
	SessionError(err domain.SessionError)
	FrameRendered(frame domain.Frame)
}
