package usecase

import (
	"fmt"

	"skyvox/internal/domain"
)

func classifyRecognitionError(code string) domain.SessionError {
	switch code {
	case domain.ServiceErrorNotAllowed, domain.ServiceErrorServiceNotAllowed:
		return domain.SessionError{
			Kind:    domain.ErrorKindPermissionDenied,
			Code:    code,
			Message: "Microphone access denied. Please allow microphone access in your browser settings (click the padlock icon in the address bar). You might need to reload the page.",
		}
	case domain.ServiceErrorNoSpeech:
		return domain.SessionError{
			Kind:    domain.ErrorKindNoSpeech,
			Code:    code,
			Message: "No speech detected. Please ensure your microphone is working and speak clearly.",
		}
	case domain.ServiceErrorAudioCapture:
		return domain.SessionError{
			Kind:    domain.ErrorKindAudioCapture,
			Code:    code,
			Message: "Microphone error. Ensure it's connected and not used by another application.",
		}
	case domain.ServiceErrorNetwork:
		return domain.SessionError{
			Kind:    domain.ErrorKindNetwork,
			Code:    code,
			Message: "Network error. Speech recognition might require an internet connection.",
		}
	default:
		return domain.SessionError{
			Kind:    domain.ErrorKindUnknown,
			Code:    code,
			Message: fmt.Sprintf("Error: %s.", code),
		}
	}
}
