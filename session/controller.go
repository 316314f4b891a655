// Package session orchestrates the widget's conversation state: which view
// is shown, the message thread, optimistic sends, attachments, and recovery
// when a conversation closes or vanishes.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/baseportal/baseportal-go-sdk/api"
	"github.com/baseportal/baseportal-go-sdk/events"
	"github.com/baseportal/baseportal-go-sdk/realtime"
	"github.com/baseportal/baseportal-go-sdk/storage"
)

// historyPageSize is how many messages are loaded when opening a thread.
// The backend returns them newest-first.
const historyPageSize = 50

// DefaultCloseGrace is how long a closed conversation stays on screen
// before the session resets, long enough for the closing message to render.
const DefaultCloseGrace = 2 * time.Second

// Gateway is the backend surface the controller drives. *api.Client
// satisfies it.
type Gateway interface {
	VisitorConversations(ctx context.Context) ([]api.Conversation, error)
	InitConversation(ctx context.Context, name, email string) (*api.ConversationWithMessages, error)
	Conversation(ctx context.Context, id string) (*api.Conversation, error)
	Messages(ctx context.Context, conversationID string, limit, page int) ([]api.Message, error)
	SendMessage(ctx context.Context, conversationID, content, mediaID string) (*api.Message, error)
	UploadFile(ctx context.Context, conversationID, name, mimeType string, r io.Reader) (*api.Media, error)
	ReopenConversation(ctx context.Context, id string) (*api.Conversation, error)
}

// Realtime is the live-delivery surface. *realtime.Bridge satisfies it.
type Realtime interface {
	Subscribe(ctx context.Context, conversationID string, h realtime.Handlers) error
	Unsubscribe()
	IsConnected() bool
}

// Config carries the per-mount inputs of a session.
type Config struct {
	Channel       *api.ChannelInfo
	Visitor       *api.VisitorData
	Authenticated bool

	// RequestedConversationID is an explicit override; it takes precedence
	// over the persisted conversation id.
	RequestedConversationID string

	// CloseGrace overrides DefaultCloseGrace (tests use a short value).
	CloseGrace time.Duration

	// Preview creates local preview resources for image attachments. Nil
	// disables previews.
	Preview PreviewFunc
}

// Controller owns all mutable session state. Other components never mutate
// it directly; realtime pushes and timer callbacks funnel through its own
// handlers under one lock.
type Controller struct {
	gw    Gateway
	rt    Realtime
	store storage.Store
	bus   *events.Bus
	cfg   Config

	mu            sync.Mutex
	view          View
	visitor       *api.VisitorData
	conversation  *api.Conversation
	conversations []api.Conversation
	messages      []api.Message
	draft         string
	attachment    *Attachment
	loading       bool
	sending       bool
	uploading     bool
	resetTimer    *time.Timer
	stopped       bool
}

// New creates a session controller. Call Start to resolve the initial view.
func New(gw Gateway, rt Realtime, store storage.Store, bus *events.Bus, cfg Config) *Controller {
	if cfg.CloseGrace <= 0 {
		cfg.CloseGrace = DefaultCloseGrace
	}
	return &Controller{
		gw:      gw,
		rt:      rt,
		store:   store,
		bus:     bus,
		cfg:     cfg,
		visitor: cfg.Visitor,
		view:    ViewChat,
	}
}

// Start resolves and enters the initial view: requested conversation,
// history list, pre-chat form, resumed conversation, or a fresh one.
func (c *Controller) Start(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	persistedID, err := c.store.ConversationID(ctx)
	if err != nil {
		// Storage is best-effort; losing continuity is acceptable.
		slog.Debug("storage read failed", "error", err)
	}

	in := ResolveInput{
		Config:        c.cfg.Channel.Config,
		Authenticated: c.cfg.Authenticated,
		Visitor:       c.visitorSnapshot(),
		RequestedID:   c.cfg.RequestedConversationID,
		PersistedID:   persistedID,
	}

	if c.historyEnabled() {
		convs, err := c.gw.VisitorConversations(ctx)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		c.mu.Lock()
		c.conversations = convs
		c.mu.Unlock()
		in.Conversations = convs
	}

	res := Resolve(in)
	switch res.Decision {
	case DecisionOpenRequested:
		for _, conv := range in.Conversations {
			if conv.ID == res.ConversationID {
				return c.OpenConversation(ctx, conv)
			}
		}
		return nil

	case DecisionShowList:
		c.setView(ViewConversations)
		return nil

	case DecisionPreChat:
		c.setView(ViewPreChat)
		return nil

	case DecisionResume:
		return c.resume(ctx, res.ConversationID)

	default:
		return c.StartNew(ctx)
	}
}

// Stop tears down the session: cancels any pending reset and releases the
// realtime subscription. Safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	if c.attachment != nil {
		c.attachment.releasePreview()
		c.attachment = nil
	}
	c.mu.Unlock()
	c.rt.Unsubscribe()
}

// resume restores a persisted conversation. A closed or unfetchable one
// clears persisted state and falls through to pre-chat or a fresh start.
func (c *Controller) resume(ctx context.Context, id string) error {
	conv, err := c.gw.Conversation(ctx, id)
	if err != nil {
		c.clearStore(ctx)
		return c.startFresh(ctx)
	}
	if !conv.Open {
		c.clearStore(ctx)
		return c.startFresh(ctx)
	}

	msgs, err := c.gw.Messages(ctx, id, historyPageSize, 0)
	if err != nil {
		c.clearStore(ctx)
		return c.startFresh(ctx)
	}

	c.mu.Lock()
	c.conversation = conv
	c.messages = reverse(msgs)
	c.view = ViewChat
	c.mu.Unlock()

	c.connectRealtime(ctx, id)
	return nil
}

// OpenConversation enters an existing conversation from the history list.
func (c *Controller) OpenConversation(ctx context.Context, conv api.Conversation) error {
	c.setLoading(true)
	defer c.setLoading(false)

	msgs, err := c.gw.Messages(ctx, conv.ID, historyPageSize, 0)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	c.mu.Lock()
	c.conversation = &conv
	c.messages = reverse(msgs)
	c.view = ViewChat
	c.mu.Unlock()

	c.persistConversationID(ctx, conv.ID)
	c.connectRealtime(ctx, conv.ID)
	return nil
}

// StartNew creates a conversation with the known visitor details.
func (c *Controller) StartNew(ctx context.Context) error {
	v := c.visitorSnapshot()
	var name, email string
	if v != nil {
		name, email = v.Name, v.Email
	}
	return c.startConversation(ctx, name, email)
}

// SubmitPreChat persists the form data and starts the conversation with it.
func (c *Controller) SubmitPreChat(ctx context.Context, name, email string) error {
	c.mu.Lock()
	merged := api.VisitorData{Name: name, Email: email}
	if c.visitor != nil {
		merged = *c.visitor
		if name != "" {
			merged.Name = name
		}
		if email != "" {
			merged.Email = email
		}
	}
	c.visitor = &merged
	c.mu.Unlock()

	if err := c.store.SetVisitor(ctx, &merged); err != nil {
		slog.Debug("storage write failed", "error", err)
	}
	return c.startConversation(ctx, name, email)
}

func (c *Controller) startConversation(ctx context.Context, name, email string) error {
	c.setLoading(true)
	defer c.setLoading(false)

	res, err := c.gw.InitConversation(ctx, name, email)
	if err != nil {
		return fmt.Errorf("start conversation: %w", err)
	}

	c.mu.Lock()
	conv := res.Conversation
	c.conversation = &conv
	c.messages = res.Messages
	c.view = ViewChat
	c.mu.Unlock()

	c.persistConversationID(ctx, conv.ID)
	c.connectRealtime(ctx, conv.ID)
	c.bus.Emit(events.ConversationStarted, conv)
	return nil
}

// Send posts the current draft plus any uploaded attachment. It is a no-op
// when there is nothing to send, no active conversation, or a send already
// in flight.
func (c *Controller) Send(ctx context.Context) error {
	c.mu.Lock()
	content := strings.TrimSpace(c.draft)
	mediaID := ""
	if c.attachment.Uploaded() {
		mediaID = c.attachment.MediaID
	}
	if (content == "" && mediaID == "") || c.conversation == nil || c.sending {
		c.mu.Unlock()
		return nil
	}
	convID := c.conversation.ID
	now := time.Now()
	temp := api.Message{
		ID:        NewTempID(),
		Content:   content,
		Role:      api.RoleClient,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.draft = ""
	if c.attachment != nil {
		c.attachment.releasePreview()
		c.attachment = nil
	}
	c.sending = true
	c.messages = append(c.messages, temp)
	c.mu.Unlock()

	msg, err := c.gw.SendMessage(ctx, convID, content, mediaID)

	c.mu.Lock()
	c.sending = false
	if err == nil {
		for i := range c.messages {
			if c.messages[i].ID == temp.ID {
				c.messages[i] = *msg
				break
			}
		}
		c.mu.Unlock()
		c.bus.Emit(events.MessageSent, *msg)
		return nil
	}

	c.messages = removeByID(c.messages, temp.ID)
	c.mu.Unlock()

	if api.IsNotFound(err) {
		// The conversation vanished server-side; recover like a close.
		c.resetSession(ctx)
	} else {
		c.mu.Lock()
		c.draft = content
		c.mu.Unlock()
	}
	return fmt.Errorf("send message: %w", err)
}

// AttachFile stages a file and uploads it. Files over MaxFileSize are
// rejected before any network call and leave the composer untouched.
func (c *Controller) AttachFile(ctx context.Context, f FileUpload) error {
	if f.Size > MaxFileSize {
		return ErrFileTooLarge
	}

	c.mu.Lock()
	if c.conversation == nil {
		c.mu.Unlock()
		return nil
	}
	convID := c.conversation.ID
	att := &Attachment{Name: f.Name, Size: f.Size, MimeType: f.MimeType}
	if f.IsImage() && c.cfg.Preview != nil {
		att.PreviewURL, att.release = c.cfg.Preview(f)
	}
	if c.attachment != nil {
		c.attachment.releasePreview()
	}
	c.attachment = att
	c.uploading = true
	c.mu.Unlock()

	media, err := c.gw.UploadFile(ctx, convID, f.Name, f.MimeType, f.Content)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = false
	if err != nil {
		if c.attachment == att {
			c.attachment = nil
		}
		att.releasePreview()
		return fmt.Errorf("upload file: %w", err)
	}
	if c.attachment == att {
		att.MediaID = media.ID
	}
	return nil
}

// RemoveAttachment discards the pending attachment and releases its
// preview resource.
func (c *Controller) RemoveAttachment() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attachment != nil {
		c.attachment.releasePreview()
		c.attachment = nil
	}
}

// Reopen asks the backend to reopen the active conversation and merges the
// returned open flag. The view does not change.
func (c *Controller) Reopen(ctx context.Context) error {
	c.mu.Lock()
	if c.conversation == nil {
		c.mu.Unlock()
		return nil
	}
	id := c.conversation.ID
	c.mu.Unlock()

	conv, err := c.gw.ReopenConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("reopen conversation: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conversation != nil && c.conversation.ID == id {
		c.conversation.Open = conv.Open
		if conv.Open && c.resetTimer != nil {
			c.resetTimer.Stop()
			c.resetTimer = nil
		}
	}
	return nil
}

// Back leaves the active chat. In history mode it returns to a refreshed
// conversation list and reports true; otherwise it reports false so the
// facade closes the widget.
func (c *Controller) Back(ctx context.Context) (bool, error) {
	c.mu.Lock()
	inChat := c.historyEnabled() && c.view == ViewChat
	c.mu.Unlock()
	if !inChat {
		return false, nil
	}

	c.rt.Unsubscribe()
	c.mu.Lock()
	c.conversation = nil
	c.messages = nil
	c.view = ViewConversations
	c.mu.Unlock()

	convs, err := c.gw.VisitorConversations(ctx)
	if err != nil {
		slog.Debug("refresh conversations failed", "error", err)
		return true, nil
	}
	c.mu.Lock()
	c.conversations = convs
	c.mu.Unlock()
	return true, nil
}

// --- Realtime handlers ---

func (c *Controller) connectRealtime(ctx context.Context, conversationID string) {
	err := c.rt.Subscribe(ctx, conversationID, realtime.Handlers{
		OnMessage:            c.handleRealtimeMessage,
		OnConversationStatus: c.handleStatusUpdate,
	})
	if err != nil {
		// Chat still works over REST; only live delivery is lost.
		slog.Warn("realtime subscribe failed", "error", err)
	}
}

func (c *Controller) handleRealtimeMessage(msg api.Message) {
	c.mu.Lock()
	c.messages = Reconcile(c.messages, msg)
	c.mu.Unlock()
	c.bus.Emit(events.MessageReceived, msg)
}

func (c *Controller) handleStatusUpdate(conv api.Conversation) {
	c.mu.Lock()
	if c.conversation == nil || c.conversation.ID != conv.ID {
		c.mu.Unlock()
		return
	}
	c.conversation.Open = conv.Open
	closed := !conv.Open
	if closed {
		if c.resetTimer != nil {
			c.resetTimer.Stop()
		}
		c.resetTimer = time.AfterFunc(c.cfg.CloseGrace, c.resetAfterClose)
	}
	c.mu.Unlock()

	if closed {
		c.bus.Emit(events.ConversationClosed, conv)
	}
}

// resetAfterClose fires once the close grace elapses. A reopen during the
// grace leaves the session alone.
func (c *Controller) resetAfterClose() {
	c.mu.Lock()
	if c.stopped || c.conversation == nil || c.conversation.Open {
		c.mu.Unlock()
		return
	}
	c.resetTimer = nil
	c.mu.Unlock()

	c.resetSession(context.Background())
}

// resetSession is the shared dispatch after a conversation ends or
// vanishes: drop the subscription and persisted state, then route to the
// history list, the pre-chat form, or a fresh conversation using the same
// precedence as Start.
func (c *Controller) resetSession(ctx context.Context) {
	c.rt.Unsubscribe()
	c.clearStore(ctx)

	c.mu.Lock()
	c.conversation = nil
	c.messages = nil
	c.mu.Unlock()

	if c.historyEnabled() {
		if convs, err := c.gw.VisitorConversations(ctx); err == nil {
			c.mu.Lock()
			c.conversations = convs
			c.mu.Unlock()
		} else {
			slog.Debug("refresh conversations failed", "error", err)
		}
		c.setView(ViewConversations)
		return
	}
	if err := c.startFresh(ctx); err != nil {
		slog.Warn("session reset failed", "error", err)
	}
}

// startFresh routes to the pre-chat form or a new conversation.
func (c *Controller) startFresh(ctx context.Context) error {
	if NeedsPreChat(c.cfg.Channel.Config, c.visitorSnapshot()) {
		c.setView(ViewPreChat)
		return nil
	}
	return c.StartNew(ctx)
}

// --- State accessors ---

// View returns the current view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Conversation returns a copy of the active conversation, or nil.
func (c *Controller) Conversation() *api.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conversation == nil {
		return nil
	}
	conv := *c.conversation
	return &conv
}

// Conversations returns a copy of the fetched history list.
func (c *Controller) Conversations() []api.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Messages returns a copy of the active thread in chronological order.
func (c *Controller) Messages() []api.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Draft returns the composer's typed input.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the composer's typed input.
func (c *Controller) SetDraft(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = s
}

// Attachment returns a copy of the pending attachment, or nil.
func (c *Controller) Attachment() *Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attachment == nil {
		return nil
	}
	att := *c.attachment
	return &att
}

// Loading reports whether an initial or view-switching fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Sending reports whether a send is in flight.
func (c *Controller) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Uploading reports whether an attachment upload is in flight.
func (c *Controller) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Visitor returns a copy of the session's visitor data, or nil.
func (c *Controller) Visitor() *api.VisitorData {
	return c.visitorSnapshot()
}

// --- Internals ---

func (c *Controller) historyEnabled() bool {
	return c.cfg.Channel.Config.AllowViewHistory && c.cfg.Authenticated
}

func (c *Controller) visitorSnapshot() *api.VisitorData {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visitor == nil {
		return nil
	}
	v := *c.visitor
	return &v
}

func (c *Controller) setView(v View) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Controller) persistConversationID(ctx context.Context, id string) {
	if err := c.store.SetConversationID(ctx, id); err != nil {
		slog.Debug("storage write failed", "error", err)
	}
}

func (c *Controller) clearStore(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		slog.Debug("storage clear failed", "error", err)
	}
}

func reverse(msgs []api.Message) []api.Message {
	out := make([]api.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

func removeByID(msgs []api.Message, id string) []api.Message {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
