package zenwhisper

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Shared Types
// ============================================================================

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// Result is the generic API response envelope.
type Result struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Meta  map[string]any  `json:"meta,omitempty"`
	Error *APIError       `json:"error,omitempty"`
}

// Decode unmarshals the Data field into the provided type.
func (r *Result) Decode(v interface{}) error {
	if r.Data == nil {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// ============================================================================
// Identity & Messages
// ============================================================================

// Identity is the current session's identity as announced to the realtime
// service. Email is the stable identifier; DisplayName is what other
// participants see.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Author identifies who wrote a message. Direct-chat messages carry both
// fields; room messages may carry only DisplayName.
type Author struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName"`
}

// Key returns the identity proxy used for ownership and dedup checks:
// the email when present, otherwise the display name.
func (a Author) Key() string {
	if a.Email != "" {
		return a.Email
	}
	return a.DisplayName
}

// WireMessage is a chat message as it travels over the history endpoint and
// the realtime connection.
type WireMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Author         Author    `json:"author"`
	Body           string    `json:"body"`
	SentAt         string    `json:"sentAt,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// Message is a rendered conversation message. IsOwn and IsSystemNotice are
// computed client-side and never transmitted.
type Message struct {
	ID             string
	ConversationID string
	Author         Author
	Body           string
	SentAt         string
	CreatedAt      time.Time
	IsOwn          bool
	IsSystemNotice bool
}

// ============================================================================
// Auth Types
// ============================================================================

type SignupOptions struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginOptions struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionData is returned by signup and login.
type SessionData struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt,omitempty"`
	User      UserProfile `json:"user"`
}

type UserProfile struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IsOnline    bool   `json:"isOnline,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type UpdateProfileOptions struct {
	DisplayName string `json:"displayName,omitempty"`
	Password    string `json:"password,omitempty"`
}

// ============================================================================
// Rooms
// ============================================================================

type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type CreateRoomOptions struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ============================================================================
// Notes
// ============================================================================

type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	FolderID  string `json:"folderId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type NoteFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NoteOptions struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	FolderID string `json:"folderId,omitempty"`
}

// ============================================================================
// Summarization
// ============================================================================

type SummarizeOptions struct {
	Text         string `json:"text"`
	MaxSentences int    `json:"maxSentences,omitempty"`
}

type SummarizeData struct {
	Summary string `json:"summary"`
	Model   string `json:"model,omitempty"`
}
