// Package zenwhisper provides the Go client SDK for the zenWhisper chat
// backend.
//
// Covers account management, user and room listings, message history, notes
// with folders, AI text summarization, and a realtime messaging client with
// client-side message reconciliation.
//
// Example:
//
//	client := zenwhisper.NewClient(token)
//
//	// REST surface
//	users, _ := client.Users().List(ctx)
//	notes, _ := client.Notes().List(ctx, "")
//
//	// Realtime (sub-module pattern)
//	rt := client.Realtime(&zenwhisper.RealtimeConfig{Identity: me})
//	_ = rt.Connect(ctx)
//	session, _ := zenwhisper.OpenDirectChat(ctx, client, rt, peer)
//	session.Send(ctx, "hello!")
package zenwhisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ============================================================================
// Environment
// ============================================================================

type Environment string

const (
	Production Environment = "production"
)

var environments = map[Environment]string{
	Production: "https://api.zenwhisper.app",
}

const (
	DefaultBaseURL = "https://api.zenwhisper.app"
	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

// Client is the zenWhisper REST client. Realtime messaging is reached through
// the Realtime factory; everything else goes over plain HTTP.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client

	auth      *AuthClient
	users     *UsersClient
	rooms     *RoomsClient
	messages  *MessagesClient
	notes     *NotesClient
	summarize *SummarizeClient
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithEnvironment(env Environment) ClientOption {
	return func(c *Client) {
		if u, ok := environments[env]; ok {
			c.baseURL = u
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient creates a new zenWhisper client.
// token is optional; pass "" for signup/login calls.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.auth = &AuthClient{client: c}
	c.users = &UsersClient{client: c}
	c.rooms = &RoomsClient{client: c}
	c.messages = &MessagesClient{client: c}
	c.notes = &NotesClient{client: c}
	c.summarize = &SummarizeClient{client: c}
	return c
}

// SetToken sets or updates the auth token.
// Useful after login to promote an anonymous client.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Auth returns the account sub-client.
func (c *Client) Auth() *AuthClient { return c.auth }

// Users returns the user-directory sub-client.
func (c *Client) Users() *UsersClient { return c.users }

// Rooms returns the group-room sub-client.
func (c *Client) Rooms() *RoomsClient { return c.rooms }

// Messages returns the message-history sub-client.
func (c *Client) Messages() *MessagesClient { return c.messages }

// Notes returns the notes sub-client.
func (c *Client) Notes() *NotesClient { return c.notes }

// Summarize returns the AI summarization sub-client.
func (c *Client) Summarize() *SummarizeClient { return c.summarize }

// ============================================================================
// Internal request helper
// ============================================================================

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, query map[string]string) (*Result, error) {
	data, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Result](data)
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// Health checks backend health.
func (c *Client) Health(ctx context.Context) (*Result, error) {
	return c.do(ctx, "GET", "/api/health", nil, nil)
}

// ============================================================================
// Auth Sub-Client
// ============================================================================

// AuthClient handles signup, login, and profile management.
type AuthClient struct{ client *Client }

func (a *AuthClient) Signup(ctx context.Context, opts *SignupOptions) (*Result, error) {
	return a.client.do(ctx, "POST", "/api/auth/signup", opts, nil)
}

func (a *AuthClient) Login(ctx context.Context, opts *LoginOptions) (*Result, error) {
	return a.client.do(ctx, "POST", "/api/auth/login", opts, nil)
}

func (a *AuthClient) Me(ctx context.Context) (*Result, error) {
	return a.client.do(ctx, "GET", "/api/auth/me", nil, nil)
}

func (a *AuthClient) UpdateProfile(ctx context.Context, opts *UpdateProfileOptions) (*Result, error) {
	return a.client.do(ctx, "PATCH", "/api/auth/profile", opts, nil)
}

func (a *AuthClient) DeleteAccount(ctx context.Context) (*Result, error) {
	return a.client.do(ctx, "DELETE", "/api/auth/account", nil, nil)
}

// ============================================================================
// Users Sub-Client
// ============================================================================

// UsersClient lists registered users (potential chat partners).
type UsersClient struct{ client *Client }

func (u *UsersClient) List(ctx context.Context) (*Result, error) {
	return u.client.do(ctx, "GET", "/api/users", nil, nil)
}

func (u *UsersClient) Get(ctx context.Context, email string) (*Result, error) {
	return u.client.do(ctx, "GET", "/api/users/"+url.PathEscape(email), nil, nil)
}

// ============================================================================
// Rooms Sub-Client
// ============================================================================

// RoomsClient manages group rooms.
type RoomsClient struct{ client *Client }

func (r *RoomsClient) List(ctx context.Context) (*Result, error) {
	return r.client.do(ctx, "GET", "/api/rooms", nil, nil)
}

func (r *RoomsClient) Get(ctx context.Context, roomID string) (*Result, error) {
	return r.client.do(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, nil)
}

func (r *RoomsClient) Create(ctx context.Context, opts *CreateRoomOptions) (*Result, error) {
	return r.client.do(ctx, "POST", "/api/rooms", opts, nil)
}

// ============================================================================
// Messages Sub-Client (history loader)
// ============================================================================

// MessagesClient performs the one-shot history fetch for a conversation.
// It never retries; the caller owns the retry affordance.
type MessagesClient struct{ client *Client }

// PrivateHistory returns the stored messages of a direct chat, in
// server-provided order. chatID must be non-empty.
func (m *MessagesClient) PrivateHistory(ctx context.Context, chatID string) ([]WireMessage, error) {
	return m.history(ctx, "/api/messages/private/"+url.PathEscape(chatID), chatID)
}

// RoomHistory returns the stored messages of a group room, in server-provided
// order. roomID must be non-empty.
func (m *MessagesClient) RoomHistory(ctx context.Context, roomID string) ([]WireMessage, error) {
	return m.history(ctx, "/api/messages/room/"+url.PathEscape(roomID), roomID)
}

func (m *MessagesClient) history(ctx context.Context, path, conversationID string) ([]WireMessage, error) {
	if conversationID == "" {
		return nil, ErrEmptyConversationID
	}
	result, err := m.client.do(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		if result.Error != nil {
			return nil, result.Error
		}
		return nil, fmt.Errorf("history fetch failed")
	}

	// Zero messages is a valid, empty conversation.
	var msgs []WireMessage
	if err := result.Decode(&msgs); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return msgs, nil
}

// ============================================================================
// Notes Sub-Client
// ============================================================================

// NotesClient manages notes and note folders.
type NotesClient struct{ client *Client }

// List returns notes, optionally restricted to one folder.
func (n *NotesClient) List(ctx context.Context, folderID string) (*Result, error) {
	var query map[string]string
	if folderID != "" {
		query = map[string]string{"folderId": folderID}
	}
	return n.client.do(ctx, "GET", "/api/notes", nil, query)
}

func (n *NotesClient) Get(ctx context.Context, noteID string) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/notes/"+url.PathEscape(noteID), nil, nil)
}

func (n *NotesClient) Create(ctx context.Context, opts *NoteOptions) (*Result, error) {
	return n.client.do(ctx, "POST", "/api/notes", opts, nil)
}

func (n *NotesClient) Update(ctx context.Context, noteID string, opts *NoteOptions) (*Result, error) {
	return n.client.do(ctx, "PATCH", "/api/notes/"+url.PathEscape(noteID), opts, nil)
}

func (n *NotesClient) Delete(ctx context.Context, noteID string) (*Result, error) {
	return n.client.do(ctx, "DELETE", "/api/notes/"+url.PathEscape(noteID), nil, nil)
}

// MoveToFolder reassigns a note to a folder ("" clears the assignment).
func (n *NotesClient) MoveToFolder(ctx context.Context, noteID, folderID string) (*Result, error) {
	return n.client.do(ctx, "PATCH", "/api/notes/"+url.PathEscape(noteID)+"/folder",
		map[string]string{"folderId": folderID}, nil)
}

func (n *NotesClient) ListFolders(ctx context.Context) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/notes/folders", nil, nil)
}

func (n *NotesClient) CreateFolder(ctx context.Context, name string) (*Result, error) {
	return n.client.do(ctx, "POST", "/api/notes/folders", map[string]string{"name": name}, nil)
}

func (n *NotesClient) DeleteFolder(ctx context.Context, folderID string) (*Result, error) {
	return n.client.do(ctx, "DELETE", "/api/notes/folders/"+url.PathEscape(folderID), nil, nil)
}

// ============================================================================
// Summarize Sub-Client
// ============================================================================

// SummarizeClient calls the AI text-summarization tool.
type SummarizeClient struct{ client *Client }

func (s *SummarizeClient) Summarize(ctx context.Context, opts *SummarizeOptions) (*Result, error) {
	if opts == nil || opts.Text == "" {
		return &Result{
			OK:    false,
			Error: &APIError{Code: "INVALID_INPUT", Message: "text is required"},
		}, nil
	}
	return s.client.do(ctx, "POST", "/api/tools/summarize", opts, nil)
}
