package api

import "time"

// Message roles on the wire. "client" is the visitor, "user" is an agent.
const (
	RoleClient = "client"
	RoleUser   = "user"
)

// ChannelConfig holds the feature flags of a support channel.
type ChannelConfig struct {
	RequireEmail            bool   `json:"requireEmail"`
	RequireName             bool   `json:"requireName"`
	AllowViewHistory        bool   `json:"allowViewHistory"`
	AllowReopenConversation bool   `json:"allowReopenConversation"`
	PrivacyPolicyURL        string `json:"privacyPolicyUrl,omitempty"`
}

// ChannelTheme holds the channel's visual defaults.
type ChannelTheme struct {
	PrimaryColor string `json:"primaryColor,omitempty"`
}

// ChannelInfo is the per-session snapshot of channel configuration,
// fetched once at mount. It drives which views are reachable.
type ChannelInfo struct {
	ID                      string        `json:"id"`
	Name                    string        `json:"name"`
	Config                  ChannelConfig `json:"config"`
	HasIdentityVerification bool          `json:"hasIdentityVerification"`
	Theme                   ChannelTheme  `json:"theme"`
}

// Conversation is one support thread between a visitor and agents.
type Conversation struct {
	ID          string    `json:"id"`
	Open        bool      `json:"open"`
	ChannelID   string    `json:"channelId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
}

// ConversationWithMessages is the create-conversation response; the backend
// may inline opening messages (e.g. a welcome message).
type ConversationWithMessages struct {
	Conversation
	Messages []Message `json:"messages,omitempty"`
}

// Avatar is an agent's profile picture.
type Avatar struct {
	URL string `json:"url"`
}

// Agent is the author profile attached to agent messages.
type Agent struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Avatar    *Avatar `json:"avatar,omitempty"`
}

// ImageVariants holds the size variants the backend renders for images.
type ImageVariants struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Small     string `json:"small,omitempty"`
	Medium    string `json:"medium,omitempty"`
	Large     string `json:"large,omitempty"`
}

// Media describes an uploaded file attached to a message.
type Media struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Name          string         `json:"name"`
	MimeType      string         `json:"mimeType"`
	Kind          string         `json:"kind,omitempty"`
	StreamURLData *ImageVariants `json:"streamUrlData,omitempty"`
}

// IsImage reports whether the media should render as an inline image.
func (m *Media) IsImage() bool {
	if m == nil {
		return false
	}
	return m.Kind == "image" || hasPrefixFold(m.MimeType, "image/")
}

// ThumbURL returns the URL to display inline (small variant when available).
func (m *Media) ThumbURL() string {
	if m.StreamURLData != nil && m.StreamURLData.Small != "" {
		return m.StreamURLData.Small
	}
	return m.URL
}

// FullURL returns the URL to display full-size (large variant when available).
func (m *Media) FullURL() string {
	if m.StreamURLData != nil && m.StreamURLData.Large != "" {
		return m.StreamURLData.Large
	}
	return m.URL
}

// Message is a single entry in a conversation thread.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDeleted bool      `json:"isDeleted,omitempty"`
	User      *Agent    `json:"user,omitempty"`
	Media     *Media    `json:"media,omitempty"`
}

// VisitorData identifies the end user operating the widget. All fields are
// optional; Hash is the server-issued proof of verified identity.
type VisitorData struct {
	Name     string            `json:"name,omitempty"`
	Email    string            `json:"email,omitempty"`
	Hash     string            `json:"hash,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Complete reports whether both name and email are known.
func (v *VisitorData) Complete() bool {
	return v != nil && v.Name != "" && v.Email != ""
}

// RealtimeToken is a short-lived credential for one conversation's
// realtime channel.
type RealtimeToken struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[i] {
			return false
		}
	}
	return true
}
