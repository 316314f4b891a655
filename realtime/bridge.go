// Package realtime delivers live conversation updates. It exchanges a
// short-lived token for a per-conversation channel subscription on the
// hosted pub/sub service and demultiplexes the two published message kinds
// into typed callbacks.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/baseportal/baseportal-go-sdk/api"
)

// TokenSource mints realtime credentials. *api.Client satisfies it.
type TokenSource interface {
	RealtimeToken(ctx context.Context, conversationID string) (*api.RealtimeToken, error)
}

// Handlers receives demultiplexed channel events. Nil fields are skipped.
type Handlers struct {
	OnMessage            func(api.Message)
	OnConversationStatus func(api.Conversation)
}

// attachRequest joins a conversation channel after the connection opens.
type attachRequest struct {
	Action   string `json:"action"`
	Channel  string `json:"channel"`
	ClientID string `json:"clientId"`
	Token    string `json:"token"`
}

// Bridge owns at most one live channel subscription. Establishing a new one
// always replaces the previous one; Unsubscribe is idempotent.
type Bridge struct {
	tokens   TokenSource
	endpoint string

	mu             sync.Mutex
	conn           net.Conn
	done           chan struct{}
	connected      bool
	conversationID string
}

// NewBridge creates a bridge that dials endpoint with tokens minted by
// tokens.
func NewBridge(tokens TokenSource, endpoint string) *Bridge {
	return &Bridge{tokens: tokens, endpoint: endpoint}
}

// Subscribe tears down any existing subscription, exchanges a fresh token,
// and joins the conversation's channel. Incoming payloads are dispatched to
// h until Unsubscribe or a read failure.
func (b *Bridge) Subscribe(ctx context.Context, conversationID string, h Handlers) error {
	b.Unsubscribe()

	tok, err := b.tokens.RealtimeToken(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("realtime token: %w", err)
	}

	endpoint := b.endpoint
	if tok.Endpoint != "" {
		endpoint = tok.Endpoint
	}

	conn, _, _, err := ws.Dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	attach, _ := json.Marshal(attachRequest{
		Action:   "attach",
		Channel:  ChannelName(conversationID),
		ClientID: ClientID(conversationID),
		Token:    tok.Token,
	})
	if err := wsutil.WriteClientText(conn, attach); err != nil {
		conn.Close()
		return fmt.Errorf("attach: %w", err)
	}

	done := make(chan struct{})
	b.mu.Lock()
	b.conn = conn
	b.done = done
	b.connected = true
	b.conversationID = conversationID
	b.mu.Unlock()

	go b.readLoop(conn, done, h)

	slog.Debug("realtime subscribed", "conversation", conversationID)
	return nil
}

// Unsubscribe releases the current subscription, if any. Safe to call with
// no active subscription and safe to call repeatedly.
func (b *Bridge) Unsubscribe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connected = false
	b.conversationID = ""
}

// IsConnected reports live connection status. It is false immediately
// after Unsubscribe and before the first successful token exchange.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// ConversationID returns the id of the subscribed conversation, or "".
func (b *Bridge) ConversationID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversationID
}

func (b *Bridge) readLoop(conn net.Conn, done chan struct{}, h Handlers) {
	for {
		data, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			select {
			case <-done:
			default:
				slog.Warn("realtime read error, disconnecting", "error", err)
				b.disconnect(conn)
			}
			return
		}

		b.dispatch(data, h)
	}
}

// dispatch decodes one channel payload. Malformed payloads are logged and
// dropped; they never stop the read loop.
func (b *Bridge) dispatch(data []byte, h Handlers) {
	env, err := decodeEnvelope(data)
	if err != nil {
		slog.Debug("bad realtime payload", "error", err)
		return
	}

	switch env.Text {
	case KindStatusUpdate:
		var conv api.Conversation
		if err := json.Unmarshal(env.Metadata, &conv); err != nil {
			slog.Debug("bad status payload", "error", err)
			return
		}
		if h.OnConversationStatus != nil {
			h.OnConversationStatus(conv)
		}

	case KindMessageUpsert:
		var msg api.Message
		if err := json.Unmarshal(env.Metadata, &msg); err != nil {
			slog.Debug("bad message payload", "error", err)
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(msg)
		}

	default:
		slog.Debug("unknown realtime event", "kind", env.Text)
	}
}

// disconnect tears down state after a read failure, unless a newer
// subscription already replaced conn.
func (b *Bridge) disconnect(conn net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != conn {
		return
	}
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
	conn.Close()
	b.conn = nil
	b.connected = false
	b.conversationID = ""
}
