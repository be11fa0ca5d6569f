package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"skyvox/internal/bootstrap"
	"skyvox/internal/config"
	"skyvox/internal/domain"
	"skyvox/internal/providers/webspeech"
)

const (
	eventListening = "skyvox:listening"
	eventPartial   = "skyvox:partial"
	eventFinal     = "skyvox:final"
	eventCommand   = "skyvox:command"
	eventError     = "skyvox:error"
	eventFrame     = "skyvox:frame"
)

type emitFunc func(ctx context.Context, event string, data ...interface{})

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	emit   emitFunc

	services *bootstrap.Services
	cfg      config.Config
	bootErr  error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load("")
	if err != nil {
		a.fail(err)
		return
	}
	a.boot(ctx, cfg, bootstrap.NewLogger(os.Stderr, cfg.LogLevel))
}

func (a *App) boot(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	a.ctx = ctx
	services, err := bootstrap.Build(cfg, a, webspeech.EmitterFunc(a.emitEvent), logger)
	if err != nil {
		a.fail(err)
		return
	}

	a.cfg = cfg
	a.services = services

	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go func() {
		if err := services.Loop.Run(loopCtx); err != nil && loopCtx.Err() == nil {
			logger.Error("frame loop stopped", "error", err)
		}
	}()
	a.ListeningChanged(a.GetStatus().ListeningStatus)
}

func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		a.services.Close()
	}
}

func (a *App) fail(err error) {
	a.bootErr = err
	a.SessionError(domain.SessionError{Kind: domain.ErrorKindUnknown, Code: "startup", Message: err.Error()})
}

// StartListening asks the recognizer to start; listening is confirmed by a later event.
func (a *App) StartListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if listening := a.services.Listening(); listening != nil {
		listening.RequestStart()
	}
	return a.services.Status(), nil
}

// StopListening stops listening immediately.
func (a *App) StopListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if listening := a.services.Listening(); listening != nil {
		listening.RequestStop()
	}
	return a.services.Status(), nil
}

// GetStatus returns the listening, command and flight state.
func (a *App) GetStatus() domain.Status {
	if a.services == nil {
		status := domain.Status{Command: domain.CommandStop, CommandLabel: domain.Command("").Label(), Flight: domain.FlightGrounded}
		if a.bootErr != nil {
			status.Error = &domain.SessionError{Kind: domain.ErrorKindUnknown, Code: "startup", Message: a.bootErr.Error()}
		}
		return status
	}
	return a.services.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := map[string]string{
		"recognizer": a.cfg.Recognizer,
		"language":   a.cfg.Language,
		"rulesFile":  a.cfg.Rules.Path,
		"frameRate":  fmt.Sprintf("%d", a.cfg.Render.FrameRate),
	}
	if a.cfg.Recognizer == config.RecognizerDeepgram {
		info["model"] = a.cfg.Deepgram.Model
		info["audioInput"] = a.cfg.Audio.InputDevice
		info["audioInputFormat"] = a.cfg.Audio.InputFormat
	}
	return info
}

// SetOrbitTarget hands the camera look-at to a manual orbit control.
func (a *App) SetOrbitTarget(x, y, z float64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.services.SetOrbitTarget(domain.Vec3{X: x, Y: y, Z: z})
	return nil
}

// ReleaseOrbit returns the look-at to the follow camera.
func (a *App) ReleaseOrbit() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.services.ReleaseOrbit()
	return nil
}

// RecognitionSupported is called by the frontend with its SpeechRecognition capability check.
func (a *App) RecognitionSupported(supported bool) domain.Status {
	if a.services == nil || a.services.Speech == nil {
		return a.GetStatus()
	}
	a.services.Speech.SetSupported(supported)
	a.services.ConnectRecognizer(a.services.Speech)
	status := a.services.Status()
	a.ListeningChanged(status.ListeningStatus)
	return status
}

// RecognitionStarted relays the browser engine's start event.
func (a *App) RecognitionStarted() {
	if speech := a.speech(); speech != nil {
		speech.DeliverStart()
	}
}

// RecognitionResult relays the browser engine's result event.
func (a *App) RecognitionResult(resultIndex int, results []domain.RecognitionResult) {
	if speech := a.speech(); speech != nil {
		speech.DeliverResult(resultIndex, results)
	}
}

// RecognitionError relays the browser engine's error event.
func (a *App) RecognitionError(code string, message string) {
	if speech := a.speech(); speech != nil {
		speech.DeliverError(code, message)
	}
}

// RecognitionEnded relays the browser engine's end event.
func (a *App) RecognitionEnded() {
	if speech := a.speech(); speech != nil {
		speech.DeliverEnd()
	}
}

func (a *App) speech() *webspeech.Bridge {
	if a.services == nil {
		return nil
	}
	return a.services.Speech
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ListeningChanged emits listening session updates to the frontend.
func (a *App) ListeningChanged(status domain.ListeningStatus) {
	a.emitEvent(eventListening, status)
}

// PartialTranscript emits live interim text.
func (a *App) PartialTranscript(text string) {
	a.emitEvent(eventPartial, map[string]string{"text": text})
}

// FinalTranscript emits the latest finalized utterance.
func (a *App) FinalTranscript(raw string) {
	a.emitEvent(eventFinal, map[string]string{"raw": raw})
}

// CommandChanged emits the new current command and its label.
func (a *App) CommandChanged(command domain.Command, label string) {
	a.emitEvent(eventCommand, map[string]string{
		"command": string(command),
		"label":   label,
	})
}

// SessionError emits recognition and startup errors to the UI.
func (a *App) SessionError(err domain.SessionError) {
	a.emitEvent(eventError, map[string]any{
		"kind":        string(err.Kind),
		"code":        err.Code,
		"title":       errorTitle(err.Kind),
		"message":     err.Message,
		"recoverable": err.Kind.Recoverable(),
	})
}

// FrameRendered emits the per-frame scene snapshot.
func (a *App) FrameRendered(frame domain.Frame) {
	a.emitEvent(eventFrame, frame)
}

func (a *App) emitEvent(event string, payload any) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, event, payload)
}

func errorTitle(kind domain.ErrorKind) string {
	switch kind {
	case domain.ErrorKindPermissionDenied:
		return "Microphone blocked"
	case domain.ErrorKindNoSpeech:
		return "No speech detected"
	case domain.ErrorKindAudioCapture:
		return "Microphone unavailable"
	case domain.ErrorKindNetwork:
		return "Network issue"
	default:
		return "Recognition error"
	}
}
