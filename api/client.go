// Package api implements the typed HTTP client for the Baseportal public
// chat API. It attaches the channel credential and, when known, the visitor
// identity headers to every call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const basePath = "/public/chat"

// Client communicates with the chat backend. It is stateless apart from the
// channel credential and the mutable visitor identity pair.
type Client struct {
	baseURL      string
	channelToken string
	httpClient   *http.Client

	mu           sync.RWMutex
	visitorEmail string
	visitorHash  string
}

// NewClient creates a chat API client for a channel.
func NewClient(channelToken, apiURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(apiURL, "/") + basePath,
		channelToken: channelToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// SetVisitorIdentity sets the identity headers for all subsequent calls.
// The hash is the server-issued verification proof and may be empty.
func (c *Client) SetVisitorIdentity(email, hash string) {
	c.mu.Lock()
	c.visitorEmail = email
	c.visitorHash = hash
	c.mu.Unlock()
}

// ClearVisitorIdentity removes the identity headers.
func (c *Client) ClearVisitorIdentity() {
	c.mu.Lock()
	c.visitorEmail = ""
	c.visitorHash = ""
	c.mu.Unlock()
}

// RequestError is returned for non-2xx responses. It carries the HTTP
// status and the raw response body so callers can classify failures.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Body)
}

// NotFound reports whether the error denotes a vanished resource. The body
// substring covers backends that report 500 with a "Row not found" text; a
// structured error kind from the backend would replace it.
func (e *RequestError) NotFound() bool {
	return e.Status == http.StatusNotFound || strings.Contains(e.Body, "Row not found")
}

// IsNotFound reports whether err is a RequestError classified as not-found.
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.NotFound()
}

// ChannelInfo fetches the channel configuration snapshot.
func (c *Client) ChannelInfo(ctx context.Context) (*ChannelInfo, error) {
	var info ChannelInfo
	if err := c.doJSON(ctx, http.MethodGet, "/channel-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// VisitorConversations lists the identified visitor's conversations.
func (c *Client) VisitorConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// InitConversation starts a new conversation. Empty name/email are omitted.
func (c *Client) InitConversation(ctx context.Context, name, email string) (*ConversationWithMessages, error) {
	body := map[string]string{"channelToken": c.channelToken}
	if name != "" {
		body["name"] = name
	}
	if email != "" {
		body["email"] = email
	}
	var conv ConversationWithMessages
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Conversation fetches a single conversation by id.
func (c *Client) Conversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Messages lists a conversation's messages. The backend returns them
// newest-first; limit and page are omitted when zero.
func (c *Client) Messages(ctx context.Context, conversationID string, limit, page int) ([]Message, error) {
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var msgs []Message
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts a visitor message. content and mediaID are each
// optional but at least one must be set.
func (c *Client) SendMessage(ctx context.Context, conversationID, content, mediaID string) (*Message, error) {
	body := map[string]string{}
	if content != "" {
		body["content"] = content
	}
	if mediaID != "" {
		body["mediaId"] = mediaID
	}
	var msg Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UploadFile uploads an attachment scoped to a conversation and returns the
// stored media descriptor.
func (c *Client) UploadFile(ctx context.Context, conversationID, name, mimeType string, r io.Reader) (*Media, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if mimeType != "" {
		if err := mw.WriteField("mimeType", mimeType); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	path := "/conversations/" + url.PathEscape(conversationID) + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var media Media
	if err := c.do(req, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// ReopenConversation asks the backend to reopen a closed conversation.
func (c *Client) ReopenConversation(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	path := "/conversations/" + url.PathEscape(id) + "/reopen"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// RealtimeToken mints a short-lived realtime credential for a conversation.
func (c *Client) RealtimeToken(ctx context.Context, conversationID string) (*RealtimeToken, error) {
	var tok RealtimeToken
	body := map[string]string{"conversationId": conversationID}
	if err := c.doJSON(ctx, http.MethodPost, "/ably-token", body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// doJSON sends a request with an optional JSON body and decodes the JSON
// response into dest.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, dest any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &RequestError{Status: resp.StatusCode, Body: string(b)}
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-channel-token", c.channelToken)
	c.mu.RLock()
	if c.visitorEmail != "" {
		req.Header.Set("x-visitor-email", c.visitorEmail)
	}
	if c.visitorHash != "" {
		req.Header.Set("x-visitor-hash", c.visitorHash)
	}
	c.mu.RUnlock()
}
