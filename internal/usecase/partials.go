package usecase

import (
	"time"

	"github.com/bep/debounce"

	"skyvox/internal/ports"
)

// newPartialEmitter coalesces bursts of interim transcripts so only the
// latest one reaches the UI once recognition settles for wait.
func newPartialEmitter(events ports.EventSink, wait time.Duration) func(text string) {
	if wait <= 0 {
		return events.PartialTranscript
	}
	debounced := debounce.New(wait)
	return func(text string) {
		debounced(func() {
			events.PartialTranscript(text)
		})
	}
}
