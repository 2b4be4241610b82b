package events

import (
	"time"

	"github.com/goccy/go-json"
)

// Event types published on the hub.
const (
	TypeLeadsNew    = "leads_new"
	TypeLeadDeleted = "lead_deleted"
	TypeExportDone  = "export_done"
	TypeViewClosed  = "view_closed"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	ViewID    string          `json:"view_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, viewID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		ViewID:    viewID,
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

func Parse(s string) (Event, error) {
	var e Event
	err := json.Unmarshal([]byte(s), &e)
	return e, err
}
