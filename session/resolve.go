package session

import "github.com/baseportal/baseportal-go-sdk/api"

// View names which surface the widget shows.
type View string

const (
	ViewPreChat       View = "prechat"
	ViewConversations View = "conversations"
	ViewChat          View = "chat"
)

// Decision is the step chosen by the initial-state resolver.
type Decision int

const (
	// DecisionPreChat shows the pre-chat form.
	DecisionPreChat Decision = iota
	// DecisionStartNew creates a new conversation immediately.
	DecisionStartNew
	// DecisionShowList shows the conversation history list.
	DecisionShowList
	// DecisionOpenRequested opens the requested conversation from the list.
	DecisionOpenRequested
	// DecisionResume fetches and resumes a known conversation id.
	DecisionResume
)

// ResolveInput is everything the resolver needs to pick the initial view.
type ResolveInput struct {
	Config        api.ChannelConfig
	Authenticated bool
	Visitor       *api.VisitorData

	// Conversations is the visitor's fetched list; only consulted in
	// history mode.
	Conversations []api.Conversation

	// RequestedID is an explicitly requested conversation id. It takes
	// precedence over PersistedID.
	RequestedID string
	// PersistedID is the conversation id restored from local storage.
	PersistedID string
}

// Resolution is the resolver's outcome. ConversationID is set for
// DecisionOpenRequested and DecisionResume.
type Resolution struct {
	Decision       Decision
	ConversationID string
}

// NeedsPreChat reports whether the pre-chat form must gate a new
// conversation: the channel requires name and/or email and the visitor does
// not already have both.
func NeedsPreChat(cfg api.ChannelConfig, v *api.VisitorData) bool {
	if v.Complete() {
		return false
	}
	return cfg.RequireName || cfg.RequireEmail
}

// Resolve picks the initial view. In history mode the precedence is
// requested id (when present in the list) > non-empty list > pre-chat >
// new conversation. Without history it is requested/persisted id resume >
// pre-chat > new conversation.
func Resolve(in ResolveInput) Resolution {
	if in.Config.AllowViewHistory && in.Authenticated {
		if in.RequestedID != "" {
			for _, conv := range in.Conversations {
				if conv.ID == in.RequestedID {
					return Resolution{Decision: DecisionOpenRequested, ConversationID: conv.ID}
				}
			}
		}
		if len(in.Conversations) > 0 {
			return Resolution{Decision: DecisionShowList}
		}
		return freshResolution(in)
	}

	id := in.RequestedID
	if id == "" {
		id = in.PersistedID
	}
	if id != "" {
		return Resolution{Decision: DecisionResume, ConversationID: id}
	}
	return freshResolution(in)
}

func freshResolution(in ResolveInput) Resolution {
	if NeedsPreChat(in.Config, in.Visitor) {
		return Resolution{Decision: DecisionPreChat}
	}
	return Resolution{Decision: DecisionStartNew}
}
