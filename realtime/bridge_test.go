package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/baseportal/baseportal-go-sdk/api"
)

type staticTokens struct {
	tok *api.RealtimeToken
	err error
}

func (s staticTokens) RealtimeToken(ctx context.Context, conversationID string) (*api.RealtimeToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tok, nil
}

// testServer accepts one websocket client, records its attach request, and
// relays payloads from the send channel.
type testServer struct {
	srv    *httptest.Server
	attach chan attachRequest
	send   chan []byte
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		attach: make(chan attachRequest, 1),
		send:   make(chan []byte, 8),
	}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req attachRequest
		if err := json.Unmarshal(data, &req); err != nil {
			t.Errorf("attach frame: %v", err)
			return
		}
		ts.attach <- req

		for payload := range ts.send {
			if err := wsutil.WriteServerText(conn, payload); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		close(ts.send)
		ts.srv.Close()
	})
	return ts
}

func (ts *testServer) endpoint() string {
	return "ws://" + strings.TrimPrefix(ts.srv.URL, "http://")
}

func TestSubscribeAttachesAndDispatches(t *testing.T) {
	ts := newTestServer(t)
	b := NewBridge(staticTokens{tok: &api.RealtimeToken{Token: "rt-1"}}, ts.endpoint())
	defer b.Unsubscribe()

	msgs := make(chan api.Message, 1)
	convs := make(chan api.Conversation, 1)
	err := b.Subscribe(context.Background(), "c1", Handlers{
		OnMessage:            func(m api.Message) { msgs <- m },
		OnConversationStatus: func(c api.Conversation) { convs <- c },
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !b.IsConnected() || b.ConversationID() != "c1" {
		t.Errorf("connected=%v id=%q", b.IsConnected(), b.ConversationID())
	}

	select {
	case req := <-ts.attach:
		if req.Action != "attach" || req.Channel != "conversation-c1" || req.ClientID != "visitor-c1" || req.Token != "rt-1" {
			t.Errorf("attach = %+v", req)
		}
	case <-time.After(time.Second):
		t.Fatal("no attach frame")
	}

	ts.send <- []byte(`{"text":"created_or_updated_message","metadata":{"id":"m1","content":"hi","role":"user"}}`)
	select {
	case m := <-msgs:
		if m.ID != "m1" || m.Content != "hi" {
			t.Errorf("msg = %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("message not dispatched")
	}

	ts.send <- []byte(`{"text":"conversation_status_updated","metadata":{"id":"c1","open":false}}`)
	select {
	case c := <-convs:
		if c.ID != "c1" || c.Open {
			t.Errorf("conv = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("status not dispatched")
	}
}

func TestMalformedPayloadsAreDropped(t *testing.T) {
	ts := newTestServer(t)
	b := NewBridge(staticTokens{tok: &api.RealtimeToken{Token: "rt-1"}}, ts.endpoint())
	defer b.Unsubscribe()

	msgs := make(chan api.Message, 1)
	err := b.Subscribe(context.Background(), "c1", Handlers{
		OnMessage: func(m api.Message) { msgs <- m },
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	<-ts.attach

	ts.send <- []byte("not json at all")
	ts.send <- []byte(`{"text":"some_future_event","metadata":{}}`)
	ts.send <- []byte(`{"text":"created_or_updated_message","metadata":{"id":"m1"}}`)

	select {
	case m := <-msgs:
		if m.ID != "m1" {
			t.Errorf("msg = %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("valid message after garbage not dispatched")
	}
}

func TestSubscribeTokenFailure(t *testing.T) {
	b := NewBridge(staticTokens{err: errors.New("denied")}, "ws://127.0.0.1:1")
	if err := b.Subscribe(context.Background(), "c1", Handlers{}); err == nil {
		t.Fatal("Subscribe should fail")
	}
	if b.IsConnected() {
		t.Error("connected after token failure")
	}
}

func TestTokenEndpointOverridesDefault(t *testing.T) {
	ts := newTestServer(t)
	// The configured endpoint is unreachable; the token's endpoint wins.
	b := NewBridge(staticTokens{tok: &api.RealtimeToken{Token: "rt-1", Endpoint: ts.endpoint()}}, "ws://127.0.0.1:1")
	defer b.Unsubscribe()

	if err := b.Subscribe(context.Background(), "c1", Handlers{}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	select {
	case <-ts.attach:
	case <-time.After(time.Second):
		t.Fatal("no attach frame on token endpoint")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	b := NewBridge(staticTokens{tok: &api.RealtimeToken{Token: "rt-1"}}, ts.endpoint())

	if err := b.Subscribe(context.Background(), "c1", Handlers{}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	<-ts.attach

	b.Unsubscribe()
	b.Unsubscribe()
	if b.IsConnected() || b.ConversationID() != "" {
		t.Errorf("connected=%v id=%q after Unsubscribe", b.IsConnected(), b.ConversationID())
	}
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	b := NewBridge(staticTokens{}, "ws://127.0.0.1:1")
	b.Unsubscribe()
	if b.IsConnected() {
		t.Error("connected without a subscription")
	}
}
