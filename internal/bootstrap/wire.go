package bootstrap

import (
	"log/slog"
	"sync"

	"skyvox/internal/audio"
	"skyvox/internal/camera"
	"skyvox/internal/config"
	"skyvox/internal/domain"
	"skyvox/internal/flight"
	"skyvox/internal/ports"
	"skyvox/internal/providers/deepgram"
	"skyvox/internal/providers/webspeech"
	"skyvox/internal/rules"
	"skyvox/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config config.Config
	Logger *slog.Logger

	Pilot  *usecase.Pilot
	Flight *flight.Controller
	Camera *camera.Follow
	Orbit  *camera.Orbit
	Loop   *usecase.Loop

	// Speech is the frontend recognition bridge; nil unless the webspeech
	// recognizer is configured and an emitter was supplied.
	Speech *webspeech.Bridge

	events ports.EventSink

	mu        sync.Mutex
	listening *usecase.ListeningController
}

// Build wires all backend dependencies. With the deepgram recognizer the
// listening controller is connected immediately; with webspeech it is
// connected once the frontend reports support through ConnectRecognizer.
func Build(cfg config.Config, events ports.EventSink, emitter webspeech.Emitter, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	normalizer, err := rules.Load(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return nil, err
	}
	logger.Debug("transcript rules loaded", "path", cfg.Rules.Path, "rules", normalizer.Len())

	pilot := usecase.NewPilot(normalizer, events, usecase.PilotConfig{
		StopOnListenEnd: cfg.Session.StopOnListenEnd,
	}, logger)

	flightController := flight.NewController(flight.Config{
		MoveSpeed:       cfg.Flight.MoveSpeed,
		RotationSpeed:   cfg.Flight.RotationSpeed,
		AltitudeSpeed:   cfg.Flight.AltitudeSpeed,
		LandingSpeed:    cfg.Flight.LandingSpeed,
		TakeoffAltitude: cfg.Flight.TakeoffAltitude,
	}, logger)

	follow := camera.NewFollow(cfg.Render.CameraDamping, camera.DefaultOffset)
	follow.Place(camera.DefaultStart, domain.Vec3{})

	services := &Services{
		Config: cfg,
		Logger: logger,
		Pilot:  pilot,
		Flight: flightController,
		Camera: follow,
		Orbit:  camera.NewOrbit(domain.Vec3{}),
		Loop:   usecase.NewLoop(flightController, follow, pilot, events, cfg.Render.FrameRate, logger),
		events: events,
	}

	switch cfg.Recognizer {
	case config.RecognizerDeepgram:
		services.ConnectRecognizer(newDeepgramProvider(cfg, logger))
	case config.RecognizerWebSpeech:
		if emitter != nil {
			services.Speech = webspeech.NewBridge(emitter)
		}
	}

	return services, nil
}

func newDeepgramProvider(cfg config.Config, logger *slog.Logger) *deepgram.Provider {
	var capture ports.AudioCapture
	if mic := audio.NewMicrophone(cfg.Audio.RecorderCommand); mic.Available() {
		capture = mic
	} else {
		logger.Warn("microphone capture unavailable", "command", cfg.Audio.RecorderCommand)
	}

	return deepgram.NewProvider(deepgram.Config{
		APIKey:          cfg.Deepgram.APIKey,
		APIBaseURL:      cfg.Deepgram.APIBaseURL,
		Model:           cfg.Deepgram.Model,
		SmartFormat:     cfg.Deepgram.SmartFormat,
		NoSpeechTimeout: cfg.Deepgram.NoSpeechTimeout,
		ChunkSize:       cfg.Audio.ChunkSize,
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
	}, capture, logger)
}

// ConnectRecognizer creates the listening controller on first call. Later
// calls return the existing controller unless it was built unsupported and
// the provider has since become available, in which case it is replaced.
func (s *Services) ConnectRecognizer(provider ports.RecognizerProvider) *usecase.ListeningController {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening != nil {
		if s.listening.Supported() || provider == nil || !provider.Available() {
			return s.listening
		}
		s.Logger.Info("speech recognition became available; rebuilding listening session")
		s.listening.Close()
	}
	s.listening = usecase.NewListeningController(provider, s.events, usecase.ListeningCallbacks{
		OnCommandRecognized: func(utterance string) { s.Pilot.HandleUtterance(utterance) },
		OnListenStop:        s.Pilot.HandleListenStop,
	}, usecase.ListeningConfig{
		Language:        s.Config.Language,
		PartialDebounce: s.Config.Session.PartialDebounce,
	}, s.Logger)
	return s.listening
}

// Listening returns the listening controller, or nil before a recognizer is connected.
func (s *Services) Listening() *usecase.ListeningController {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Status composes the listening session, command and flight state for the UI.
func (s *Services) Status() domain.Status {
	var listening domain.ListeningStatus
	if controller := s.Listening(); controller != nil {
		listening = controller.Status()
	}
	return domain.Status{
		ListeningStatus: listening,
		Command:         s.Pilot.Current(),
		CommandLabel:    s.Pilot.Label(),
		Flight:          s.Loop.Last().Vehicle.Status,
	}
}

// SetOrbitTarget hands the camera look-at to the manual orbit control.
func (s *Services) SetOrbitTarget(target domain.Vec3) {
	s.Orbit.SetTarget(target)
	s.Loop.AttachOrbit(s.Orbit)
}

// ReleaseOrbit returns the look-at to the follow camera.
func (s *Services) ReleaseOrbit() {
	s.Loop.AttachOrbit(nil)
}

// Close stops any listening session.
func (s *Services) Close() {
	if controller := s.Listening(); controller != nil {
		controller.Close()
	}
}
