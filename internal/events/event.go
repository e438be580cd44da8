package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	RunFinished     = "run.finished"
	PostingsAdded   = "postings.added"
	OutcomeReported = "outcome.reported"
	PortalToggled   = "portal.toggled"
)

// Event is one engine notification. Seq is assigned by the Hub on publish and
// doubles as the SSE event id.
type Event struct {
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func New(reqID, typ string, data any) Event {
	e := Event{Type: typ, Version: 1, At: time.Now().UTC(), RequestID: reqID}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			e.Data = b
		}
	}
	return e
}

// Frame renders e as a complete text/event-stream frame.
func (e Event) Frame() string {
	b, _ := json.Marshal(e)
	if e.Seq == 0 {
		return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, b)
	}
	return fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Type, b)
}
