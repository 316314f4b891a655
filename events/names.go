package events

// Event names published on the bus. Hosts subscribe to these through the
// SDK facade.
const (
	Ready               = "ready"
	Open                = "open"
	Close               = "close"
	Show                = "show"
	Hide                = "hide"
	Identified          = "identified"
	Error               = "error"
	ConversationStarted = "conversation:started"
	ConversationClosed  = "conversation:closed"
	MessageSent         = "message:sent"
	MessageReceived     = "message:received"
)
