package usecase

import (
	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

// nopEventSink stands in when a component is built without a sink.
type nopEventSink struct{}

func (nopEventSink) ListeningChanged(domain.ListeningStatus) {}
func (nopEventSink) PartialTranscript(string)                {}
func (nopEventSink) FinalTranscript(string)                  {}
func (nopEventSink) CommandChanged(domain.Command, string)   {}
func (nopEventSink) SessionError(domain.SessionError)        {}
func (nopEventSink) FrameRendered(domain.Frame)              {}

func sinkOrNop(events ports.EventSink) ports.EventSink {
	if events == nil {
		return nopEventSink{}
	}
	return events
}
