package wire

import (
	"bytes"
	"encoding/json"
)

// Control message types sent to the feed server.
const (
	messageSubscribe   = "subscribe"
	messageUnsubscribe = "unsubscribe"
)

type subscribeMessage struct {
	MessageType string `json:"message_type"`
	SegmentID   string `json:"segment_id"`
	Token       int32  `json:"token"`
	Mode        Mode   `json:"mode,omitempty"`
}

// EncodeSubscribe builds the subscribe control frame for one instrument.
func EncodeSubscribe(exchange string, token int32, mode Mode) ([]byte, error) {
	return json.Marshal(subscribeMessage{
		MessageType: messageSubscribe,
		SegmentID:   exchange,
		Token:       token,
		Mode:        mode,
	})
}

// EncodeUnsubscribe builds the unsubscribe control frame for one instrument.
func EncodeUnsubscribe(exchange string, token int32) ([]byte, error) {
	return json.Marshal(subscribeMessage{
		MessageType: messageUnsubscribe,
		SegmentID:   exchange,
		Token:       token,
	})
}

var jsonNull = []byte("null")

// DecodeText parses a text frame as an order update. Returns ok=false
// for malformed JSON or payloads missing the type or data fields;
// those frames are dropped, never surfaced as errors.
func DecodeText(payload []byte) (OrderUpdate, bool) {
	var u OrderUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		return OrderUpdate{}, false
	}
	if u.Type == "" || len(u.Data) == 0 || bytes.Equal(u.Data, jsonNull) {
		return OrderUpdate{}, false
	}
	return u, true
}
