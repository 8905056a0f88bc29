package httpapi

import (
	"time"

	"github.com/soocke/lipread-go/domain/pipeline"
)

// Message is the JSON frame pushed to websocket clients.
type Message struct {
	Type       string    `json:"type"` // result, empty or status
	Original   string    `json:"original,omitempty"`
	Translated string    `json:"translated,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	RegionID   string    `json:"region_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	State      string    `json:"state,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	At         time.Time `json:"at"`
}

func NewEventMessage(ev pipeline.Event) Message {
	return Message{
		Type:       ev.Kind.String(),
		Original:   ev.Original,
		Translated: ev.Translated,
		Confidence: ev.Confidence,
		RegionID:   ev.RegionID,
		SessionID:  ev.SessionID,
		At:         ev.At,
	}
}

func NewStatusMessage(st pipeline.Status) Message {
	m := Message{
		Type:      "status",
		Status:    string(st.Kind),
		State:     st.State.String(),
		SessionID: st.SessionID,
		At:        st.At,
	}
	if st.Err != nil {
		m.Stage = st.Stage.String()
		m.Error = st.Err.Error()
	}
	return m
}
