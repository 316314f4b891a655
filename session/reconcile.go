package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/baseportal/baseportal-go-sdk/api"
)

// tempIDPrefix marks optimistic messages that have no server id yet.
const tempIDPrefix = "temp-"

// NewTempID generates an id for an optimistic message.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id marks a locally generated optimistic message.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// Reconcile merges an incoming realtime message into the list. If the id is
// already present the entry takes the incoming fields (edits); otherwise at
// most one optimistic placeholder with matching content is dropped before
// the message is appended, so the sender's own echo and the realtime push
// for the same message never produce a double entry. The input list is not
// mutated.
func Reconcile(list []api.Message, incoming api.Message) []api.Message {
	for i := range list {
		if list[i].ID == incoming.ID {
			out := make([]api.Message, len(list))
			copy(out, list)
			out[i] = incoming
			return out
		}
	}

	out := make([]api.Message, 0, len(list)+1)
	dropped := false
	for _, m := range list {
		if !dropped && IsTempID(m.ID) && m.Content == incoming.Content {
			dropped = true
			continue
		}
		out = append(out, m)
	}
	return append(out, incoming)
}
