package realtime

import (
	"encoding/json"
	"errors"
)

// Envelope kinds published on a conversation channel.
const (
	KindStatusUpdate  = "conversation_status_updated"
	KindMessageUpsert = "created_or_updated_message"
)

// Envelope is the wire format of every channel publish: a kind
// discriminator and the affected entity.
type Envelope struct {
	Text     string          `json:"text"`
	Metadata json.RawMessage `json:"metadata"`
}

var errEmptyEnvelope = errors.New("realtime: empty envelope")

// decodeEnvelope parses a raw channel payload, inflating compressed frames
// first.
func decodeEnvelope(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, errEmptyEnvelope
	}

	if isCompressed(data) {
		inflated, err := Decompress(data)
		if err != nil {
			return Envelope{}, err
		}
		data = inflated
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// ChannelName returns the pub/sub channel for a conversation.
func ChannelName(conversationID string) string {
	return "conversation-" + conversationID
}

// ClientID returns the per-visitor client identity for a conversation.
func ClientID(conversationID string) string {
	return "visitor-" + conversationID
}
