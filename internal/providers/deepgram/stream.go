package deepgram

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

// stream serializes writes on a Deepgram websocket; gorilla allows one writer at a time.
type stream struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newStream(conn *websocket.Conn) *stream {
	return &stream{conn: conn}
}

func (s *stream) send(chunk []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// closeStream asks Deepgram to flush pending results and close the socket.
func (s *stream) closeStream() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	})
}

// pump copies microphone audio to the socket until the capture ends.
func (s *stream) pump(audio ports.AudioSession, chunkSize int) error {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := s.send(append([]byte(nil), buf[:n]...)); sendErr != nil {
				return fmt.Errorf("failed to stream audio: %w", sendErr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("audio capture error: %w", err)
		}
	}
}

// readLoop turns Deepgram messages into a growing result list. Each message
// revises the trailing entry until that entry becomes final.
func (s *stream) readLoop(heard chan<- struct{}, deliver func(int, []domain.RecognitionResult)) error {
	var results []domain.RecognitionResult

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if isNormalClose(err) {
				return nil
			}
			return fmt.Errorf("failed to read provider event: %w", err)
		}

		var response deepgramResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			return errors.New(message)
		}

		transcript := extractTranscript(response)
		if transcript == "" {
			continue
		}
		select {
		case heard <- struct{}{}:
		default:
		}

		result := domain.RecognitionResult{
			Transcript: transcript,
			Final:      response.IsFinal || response.SpeechFinal,
		}
		if n := len(results); n > 0 && !results[n-1].Final {
			results[n-1] = result
		} else {
			results = append(results, result)
		}
		deliver(len(results)-1, append([]domain.RecognitionResult(nil), results...))
	}
}

func isNormalClose(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	return errors.Is(err, io.EOF) || strings.Contains(err.Error(), "use of closed network connection")
}
