// Package baseportal is the embeddable support-chat widget SDK. A Widget is
// configured once, mounted against a channel, and then driven through its
// methods; state changes surface through the event bus and the state
// accessors.
package baseportal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baseportal/baseportal-go-sdk/api"
	"github.com/baseportal/baseportal-go-sdk/events"
	"github.com/baseportal/baseportal-go-sdk/i18n"
	"github.com/baseportal/baseportal-go-sdk/realtime"
	"github.com/baseportal/baseportal-go-sdk/session"
	"github.com/baseportal/baseportal-go-sdk/storage"
)

// DefaultAPIURL is the hosted backend.
const DefaultAPIURL = "https://api.baseportal.io"

// DefaultRealtimeEndpoint is the hosted realtime fan-out service. The token
// exchange may override it per conversation.
const DefaultRealtimeEndpoint = "wss://realtime.baseportal.io/sub"

var (
	// ErrMissingChannelToken is returned by New when no channel token is set.
	ErrMissingChannelToken = errors.New("baseportal: channel token is required")
	// ErrAlreadyMounted is returned by Mount on a widget that is mounted.
	ErrAlreadyMounted = errors.New("baseportal: widget is already mounted")
	// ErrNotMounted is returned by operations that need a mounted widget.
	ErrNotMounted = errors.New("baseportal: widget is not mounted")
)

// Config is the embedder-facing widget configuration.
type Config struct {
	// ChannelToken identifies the support channel. Required.
	ChannelToken string

	// APIURL overrides DefaultAPIURL.
	APIURL string

	// RealtimeEndpoint overrides DefaultRealtimeEndpoint.
	RealtimeEndpoint string

	// Visitor pre-fills the visitor identity. A non-empty Email identifies
	// the visitor and enables conversation history on channels that allow
	// it.
	Visitor *api.VisitorData
	// VisitorHash is the optional server-issued signature over
	// Visitor.Email. Visitor.Hash serves the same purpose; when both are
	// set, VisitorHash wins.
	VisitorHash string

	// ConversationID opens a specific conversation on mount.
	ConversationID string

	// PrimaryColor overrides the channel's brand color (#rrggbb).
	PrimaryColor string
	Position     Position
	Locale       i18n.Locale

	// Hidden starts the widget without the launcher showing.
	Hidden bool

	// StoreType selects the persistence driver; memory by default.
	StoreType    storage.StoreType
	StoreOptions []storage.StoreOption

	// Preview creates local preview resources for image attachments.
	Preview session.PreviewFunc

	// CloseGrace shortens the post-close reset delay. Zero keeps the
	// default.
	CloseGrace time.Duration
}

// Widget is one embedded chat widget instance.
type Widget struct {
	cfg Config
	bus *events.Bus

	mu        sync.Mutex
	client    *api.Client
	channel   *api.ChannelInfo
	store     storage.Store
	ctrl      *session.Controller
	theme     Theme
	locale    i18n.Locale
	mounted   bool
	destroyed bool
	open      bool
	visible   bool
}

// New validates the configuration and creates an unmounted widget.
func New(cfg Config) (*Widget, error) {
	if cfg.ChannelToken == "" {
		return nil, ErrMissingChannelToken
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RealtimeEndpoint == "" {
		cfg.RealtimeEndpoint = DefaultRealtimeEndpoint
	}
	if cfg.Locale == "" {
		cfg.Locale = i18n.LocalePT
	}
	return &Widget{
		cfg:     cfg,
		bus:     events.NewBus(),
		locale:  cfg.Locale,
		visible: !cfg.Hidden,
	}, nil
}

// Mount fetches the channel configuration, restores persisted state, and
// resolves the initial view. It emits events.Ready on success.
func (w *Widget) Mount(ctx context.Context) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrNotMounted
	}
	if w.mounted {
		w.mu.Unlock()
		return ErrAlreadyMounted
	}
	cfg := w.cfg
	w.mu.Unlock()

	client := api.NewClient(cfg.ChannelToken, cfg.APIURL)
	visitor := cfg.Visitor
	email := ""
	authenticated := false
	if visitor != nil && visitor.Email != "" {
		hash := cfg.VisitorHash
		if hash == "" {
			hash = visitor.Hash
		}
		client.SetVisitorIdentity(visitor.Email, hash)
		email = visitor.Email
		authenticated = true
	}

	channel, err := client.ChannelInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch channel info: %w", err)
	}

	store, err := storage.NewStore(cfg.StoreType, storage.Key(cfg.ChannelToken, email), cfg.StoreOptions...)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	// A persisted visitor is restored only when the embedder supplied
	// none; a supplied visitor is authoritative, even when partial.
	if visitor == nil {
		if stored, err := store.Visitor(ctx); err == nil && stored != nil {
			visitor = stored
		}
	}

	bridge := realtime.NewBridge(client, cfg.RealtimeEndpoint)
	ctrl := session.New(client, bridge, store, w.bus, session.Config{
		Channel:                 channel,
		Visitor:                 visitor,
		Authenticated:           authenticated,
		RequestedConversationID: cfg.ConversationID,
		CloseGrace:              cfg.CloseGrace,
		Preview:                 cfg.Preview,
	})

	// Only the channel-config fetch is fatal to mounting. A failed session
	// init (e.g. the history fetch) leaves a mounted widget in its default
	// view; later operations can still succeed.
	startErr := ctrl.Start(ctx)
	if startErr != nil {
		slog.Warn("session init failed", "error", startErr)
	}

	w.mu.Lock()
	w.client = client
	w.channel = channel
	w.store = store
	w.ctrl = ctrl
	w.theme = resolveTheme(cfg.PrimaryColor, channel.Theme.PrimaryColor, cfg.Position)
	w.mounted = true
	w.mu.Unlock()

	w.bus.Emit(events.Ready)
	if startErr != nil {
		w.bus.Emit(events.Error, startErr.Error())
		return fmt.Errorf("start session: %w", startErr)
	}
	return nil
}

// Destroy tears the widget down: stops the session, closes storage, and
// drops all event listeners. Safe to call more than once; a destroyed
// widget cannot be remounted.
func (w *Widget) Destroy() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.destroyed = true
	ctrl, store := w.ctrl, w.store
	w.ctrl, w.store, w.client, w.channel = nil, nil, nil, nil
	w.mounted = false
	w.mu.Unlock()

	if ctrl != nil {
		ctrl.Stop()
	}
	if store != nil {
		store.Close()
	}
	w.bus.RemoveAll()
}

// unmount tears down the session but keeps the widget reusable. Used by
// identity changes, which need a fresh storage scope.
func (w *Widget) unmount() {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	ctrl, store := w.ctrl, w.store
	w.ctrl, w.store, w.client, w.channel = nil, nil, nil, nil
	w.mounted = false
	w.mu.Unlock()

	ctrl.Stop()
	store.Close()
}

// --- Visibility ---

// Open expands the chat panel and emits events.Open.
func (w *Widget) Open() {
	w.mu.Lock()
	changed := !w.open
	w.open = true
	w.mu.Unlock()
	if changed {
		w.bus.Emit(events.Open)
	}
}

// Close collapses the chat panel back to the launcher and emits
// events.Close.
func (w *Widget) Close() {
	w.mu.Lock()
	changed := w.open
	w.open = false
	w.mu.Unlock()
	if changed {
		w.bus.Emit(events.Close)
	}
}

// Toggle opens the panel if closed and closes it if open.
func (w *Widget) Toggle() {
	w.mu.Lock()
	open := w.open
	w.mu.Unlock()
	if open {
		w.Close()
	} else {
		w.Open()
	}
}

// IsOpen reports whether the chat panel is expanded.
func (w *Widget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// Show makes the launcher visible and emits events.Show.
func (w *Widget) Show() {
	w.mu.Lock()
	changed := !w.visible
	w.visible = true
	w.mu.Unlock()
	if changed {
		w.bus.Emit(events.Show)
	}
}

// Hide removes the widget from view entirely and emits events.Hide.
func (w *Widget) Hide() {
	w.mu.Lock()
	changed := w.visible
	w.visible, w.open = false, false
	w.mu.Unlock()
	if changed {
		w.bus.Emit(events.Hide)
	}
}

// IsVisible reports whether the launcher is shown.
func (w *Widget) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// --- Identity ---

// Identify sets a verified visitor identity and remounts the session under
// the new storage scope. It emits events.Identified.
func (w *Widget) Identify(ctx context.Context, v api.VisitorData, hash string) error {
	w.mu.Lock()
	wasMounted := w.mounted
	visitor := v
	w.cfg.Visitor = &visitor
	w.cfg.VisitorHash = hash
	w.mu.Unlock()

	if wasMounted {
		w.unmount()
		if err := w.Mount(ctx); err != nil {
			return err
		}
	}
	w.bus.Emit(events.Identified, v)
	return nil
}

// UpdateVisitor merges non-empty fields into the visitor profile and
// persists it. It does not change the verified identity, so no remount.
func (w *Widget) UpdateVisitor(ctx context.Context, v api.VisitorData) error {
	w.mu.Lock()
	merged := v
	if w.cfg.Visitor != nil {
		merged = *w.cfg.Visitor
		if v.Name != "" {
			merged.Name = v.Name
		}
		if v.Email != "" {
			merged.Email = v.Email
		}
		if v.Metadata != nil {
			merged.Metadata = v.Metadata
		}
	}
	w.cfg.Visitor = &merged
	store := w.store
	w.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.SetVisitor(ctx, &merged)
}

// ClearVisitor drops the visitor identity and remounts anonymously.
func (w *Widget) ClearVisitor(ctx context.Context) error {
	w.mu.Lock()
	wasMounted := w.mounted
	w.cfg.Visitor = nil
	w.cfg.VisitorHash = ""
	w.mu.Unlock()

	if !wasMounted {
		return nil
	}
	w.unmount()
	return w.Mount(ctx)
}

// --- Appearance ---

// SetPrimaryColor changes the brand color of a mounted widget in place.
func (w *Widget) SetPrimaryColor(color string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.PrimaryColor = color
	if w.channel != nil {
		w.theme = resolveTheme(color, w.channel.Theme.PrimaryColor, w.cfg.Position)
	}
}

// SetPosition moves the launcher anchor.
func (w *Widget) SetPosition(pos Position) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg.Position = pos
	w.theme.Position = pos
	if w.theme.Position == "" {
		w.theme.Position = PositionBottomRight
	}
}

// SetLocale switches the interface language. Unknown locales fall back to
// Portuguese.
func (w *Widget) SetLocale(locale i18n.Locale) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locale = locale
}

// Theme returns the resolved theme of a mounted widget.
func (w *Widget) Theme() Theme {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.theme
}

// Strings returns the interface strings for the current locale.
func (w *Widget) Strings() i18n.Translations {
	w.mu.Lock()
	locale := w.locale
	w.mu.Unlock()
	return i18n.Get(locale)
}

// --- Events ---

// On registers a listener and returns its id for Off.
func (w *Widget) On(event string, cb events.Callback) int {
	return w.bus.On(event, cb)
}

// Off removes the listener registered under id.
func (w *Widget) Off(event string, id int) {
	w.bus.Off(event, id)
}

// --- Conversation operations ---

// SendMessage sends a text message in the active conversation.
func (w *Widget) SendMessage(ctx context.Context, text string) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	ctrl.SetDraft(text)
	return ctrl.Send(ctx)
}

// AttachFile stages and uploads a file for the next message. Rejections
// also surface as a localized message on the error event.
func (w *Widget) AttachFile(ctx context.Context, f session.FileUpload) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	if err := ctrl.AttachFile(ctx, f); err != nil {
		if errors.Is(err, session.ErrFileTooLarge) {
			w.bus.Emit(events.Error, w.Strings().Chat.FileTooLarge)
		}
		return err
	}
	return nil
}

// RemoveAttachment discards the pending attachment.
func (w *Widget) RemoveAttachment() {
	if ctrl, err := w.controller(); err == nil {
		ctrl.RemoveAttachment()
	}
}

// SubmitPreChat submits the pre-chat form and starts the conversation.
func (w *Widget) SubmitPreChat(ctx context.Context, name, email string) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	return ctrl.SubmitPreChat(ctx, name, email)
}

// NewConversation starts a fresh conversation, leaving any current one.
func (w *Widget) NewConversation(ctx context.Context) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	return ctrl.StartNew(ctx)
}

// OpenConversation enters a conversation from the history list.
func (w *Widget) OpenConversation(ctx context.Context, conv api.Conversation) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	return ctrl.OpenConversation(ctx, conv)
}

// SetConversationID switches the widget to a specific conversation. On an
// unmounted widget it only records the id for the next mount.
func (w *Widget) SetConversationID(ctx context.Context, id string) error {
	w.mu.Lock()
	w.cfg.ConversationID = id
	client, ctrl := w.client, w.ctrl
	w.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	conv, err := client.Conversation(ctx, id)
	if err != nil {
		return err
	}
	return ctrl.OpenConversation(ctx, *conv)
}

// Reopen asks the backend to reopen the active closed conversation.
func (w *Widget) Reopen(ctx context.Context) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	return ctrl.Reopen(ctx)
}

// Back leaves the active chat: to the history list when available,
// otherwise it closes the panel.
func (w *Widget) Back(ctx context.Context) error {
	ctrl, err := w.controller()
	if err != nil {
		return err
	}
	handled, err := ctrl.Back(ctx)
	if err != nil {
		return err
	}
	if !handled {
		w.Close()
	}
	return nil
}

// --- State accessors ---

// View returns the session's current view.
func (w *Widget) View() (session.View, error) {
	ctrl, err := w.controller()
	if err != nil {
		return "", err
	}
	return ctrl.View(), nil
}

// Conversation returns the active conversation, or nil.
func (w *Widget) Conversation() *api.Conversation {
	if ctrl, err := w.controller(); err == nil {
		return ctrl.Conversation()
	}
	return nil
}

// Conversations returns the visitor's conversation history.
func (w *Widget) Conversations() []api.Conversation {
	if ctrl, err := w.controller(); err == nil {
		return ctrl.Conversations()
	}
	return nil
}

// Messages returns the active thread in chronological order.
func (w *Widget) Messages() []api.Message {
	if ctrl, err := w.controller(); err == nil {
		return ctrl.Messages()
	}
	return nil
}

// Channel returns the mounted channel's configuration, or nil.
func (w *Widget) Channel() *api.ChannelInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.channel == nil {
		return nil
	}
	ch := *w.channel
	return &ch
}

func (w *Widget) controller() (*session.Controller, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctrl == nil {
		return nil, ErrNotMounted
	}
	return w.ctrl, nil
}
