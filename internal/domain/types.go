package domain

import "strings"

// Command is one discrete pilot instruction produced from an utterance.
type Command string

const (
	CommandForward  Command = "forward"
	CommandBackward Command = "backward"
	CommandLeft     Command = "left"
	CommandRight    Command = "right"
	CommandUp       Command = "up"
	CommandDown     Command = "down"
	CommandStop     Command = "stop"
	CommandLand     Command = "land"
	CommandTakeoff  Command = "takeoff"
)

// Label returns the capitalised form shown as "Last Command" in the UI.
func (c Command) Label() string {
	if c == "" {
		return "None"
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:]
}

// IsMovement reports whether the command only has an effect while flying.
func (c Command) IsMovement() bool {
	switch c {
	case CommandForward, CommandBackward, CommandLeft, CommandRight, CommandUp, CommandDown:
		return true
	default:
		return false
	}
}

// FlightStatus models the vertical lifecycle of the vehicle.
type FlightStatus string

const (
	FlightGrounded  FlightStatus = "grounded"
	FlightTakingOff FlightStatus = "takingOff"
	FlightFlying    FlightStatus = "flying"
	FlightLanding   FlightStatus = "landing"
)

// Airborne reports whether the vehicle has left the ground.
func (s FlightStatus) Airborne() bool {
	return s == FlightTakingOff || s == FlightFlying || s == FlightLanding
}

// Pose is the vehicle's world transform. Heading is the rotation about +Y in radians.
type Pose struct {
	Position Vec3    `json:"position"`
	Heading  float64 `json:"heading"`
}

// VehicleState is owned by the flight controller and copied out on every frame.
type VehicleState struct {
	Status         FlightStatus `json:"status"`
	Pose           Pose         `json:"pose"`
	TargetAltitude float64      `json:"targetAltitude"`
}

// CameraPose is the smoothed follow camera. Yaw and Pitch describe the view direction.
type CameraPose struct {
	Position Vec3    `json:"position"`
	LookAt   Vec3    `json:"lookAt"`
	Yaw      float64 `json:"yaw"`
	Pitch    float64 `json:"pitch"`
}

// Frame is the per-frame snapshot pushed to the renderer.
type Frame struct {
	Seq     uint64       `json:"seq"`
	Command Command      `json:"command"`
	Vehicle VehicleState `json:"vehicle"`
	Camera  CameraPose   `json:"camera"`
}

// ErrorKind classifies recognition service failures for the UI.
type ErrorKind string

const (
	ErrorKindPermissionDenied ErrorKind = "permission-denied"
	ErrorKindNoSpeech         ErrorKind = "no-speech"
	ErrorKindAudioCapture     ErrorKind = "audio-capture"
	ErrorKindNetwork          ErrorKind = "network"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// Recoverable reports whether simply trying again may succeed.
func (k ErrorKind) Recoverable() bool {
	return k != ErrorKindPermissionDenied
}

// Service error codes as reported by speech recognition engines.
const (
	ServiceErrorNotAllowed        = "not-allowed"
	ServiceErrorServiceNotAllowed = "service-not-allowed"
	ServiceErrorNoSpeech          = "no-speech"
	ServiceErrorAudioCapture      = "audio-capture"
	ServiceErrorNetwork           = "network"
	ServiceErrorAborted           = "aborted"
)

// SessionError is the last classified error of a listening session.
type SessionError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// RecognitionResult is one entry of a recognition result list.
type RecognitionResult struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"isFinal"`
}

// ListeningStatus is the UI-visible state of the listening session.
type ListeningStatus struct {
	Supported  bool          `json:"supported"`
	Listening  bool          `json:"listening"`
	Starting   bool          `json:"starting"`
	SessionID  string        `json:"sessionId,omitempty"`
	Interim    string        `json:"interim"`
	Transcript string        `json:"transcript"`
	Error      *SessionError `json:"error,omitempty"`
}

// Status is everything the control panel renders.
type Status struct {
	ListeningStatus
	Command      Command      `json:"command"`
	CommandLabel string       `json:"commandLabel"`
	Flight       FlightStatus `json:"flight"`
}
