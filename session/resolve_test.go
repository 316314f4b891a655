package session

import (
	"testing"

	"github.com/baseportal/baseportal-go-sdk/api"
)

func TestNeedsPreChat(t *testing.T) {
	cases := []struct {
		name    string
		cfg     api.ChannelConfig
		visitor *api.VisitorData
		want    bool
	}{
		{"nothing required", api.ChannelConfig{}, nil, false},
		{"name required, unknown visitor", api.ChannelConfig{RequireName: true}, nil, true},
		{"email required, unknown visitor", api.ChannelConfig{RequireEmail: true}, nil, true},
		{"required but visitor complete", api.ChannelConfig{RequireName: true, RequireEmail: true}, &api.VisitorData{Name: "Ana", Email: "a@b"}, false},
		{"required, visitor partial", api.ChannelConfig{RequireEmail: true}, &api.VisitorData{Name: "Ana"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsPreChat(tc.cfg, tc.visitor); got != tc.want {
				t.Errorf("NeedsPreChat = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveHistoryMode(t *testing.T) {
	cfg := api.ChannelConfig{AllowViewHistory: true}
	convs := []api.Conversation{{ID: "c1"}, {ID: "c2"}}

	t.Run("requested id in list wins", func(t *testing.T) {
		res := Resolve(ResolveInput{Config: cfg, Authenticated: true, Conversations: convs, RequestedID: "c2", PersistedID: "c1"})
		if res.Decision != DecisionOpenRequested || res.ConversationID != "c2" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("requested id not in list falls to list", func(t *testing.T) {
		res := Resolve(ResolveInput{Config: cfg, Authenticated: true, Conversations: convs, RequestedID: "missing"})
		if res.Decision != DecisionShowList {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("non-empty list shows list", func(t *testing.T) {
		res := Resolve(ResolveInput{Config: cfg, Authenticated: true, Conversations: convs, PersistedID: "c1"})
		if res.Decision != DecisionShowList {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("empty list starts fresh", func(t *testing.T) {
		res := Resolve(ResolveInput{Config: cfg, Authenticated: true})
		if res.Decision != DecisionStartNew {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("empty list with prechat gate", func(t *testing.T) {
		gated := api.ChannelConfig{AllowViewHistory: true, RequireEmail: true}
		res := Resolve(ResolveInput{Config: gated, Authenticated: true})
		if res.Decision != DecisionPreChat {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("history without authentication is ignored", func(t *testing.T) {
		res := Resolve(ResolveInput{Config: cfg, Authenticated: false, Conversations: convs, PersistedID: "c1"})
		if res.Decision != DecisionResume || res.ConversationID != "c1" {
			t.Errorf("res = %+v", res)
		}
	})
}

func TestResolveWithoutHistory(t *testing.T) {
	t.Run("requested beats persisted", func(t *testing.T) {
		res := Resolve(ResolveInput{RequestedID: "c9", PersistedID: "c1"})
		if res.Decision != DecisionResume || res.ConversationID != "c9" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("persisted id resumes", func(t *testing.T) {
		res := Resolve(ResolveInput{PersistedID: "c1"})
		if res.Decision != DecisionResume || res.ConversationID != "c1" {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("no id and no gate starts new", func(t *testing.T) {
		res := Resolve(ResolveInput{})
		if res.Decision != DecisionStartNew {
			t.Errorf("res = %+v", res)
		}
	})

	t.Run("no id with gate shows prechat", func(t *testing.T) {
		res := Resolve(ResolveInput{Config: api.ChannelConfig{RequireName: true}})
		if res.Decision != DecisionPreChat {
			t.Errorf("res = %+v", res)
		}
	})
}
