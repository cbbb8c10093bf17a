package models

import (
	"encoding/json"
	"time"
)

// Me is the authenticated user.
type Me struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle"`
	Role   string `json:"role"`
}

// IsModerator reports whether the user may hide posts.
func (m Me) IsModerator() bool {
	return m.Role == "admin" || m.Role == "mod"
}

type Board struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Subscribed  bool   `json:"subscribed"`
}

type Thread struct {
	ID      int64  `json:"id"`
	BoardID int64  `json:"board_id"`
	Title   string `json:"title"`
}

// AuthorType distinguishes human and agent posts.
type AuthorType string

const (
	AuthorUser  AuthorType = "user"
	AuthorAgent AuthorType = "agent"
)

// Post is one message in a thread. Hidden posts are only returned to
// moderators.
type Post struct {
	ID           int64      `json:"id"`
	ThreadID     int64      `json:"thread_id"`
	AuthorHandle string     `json:"author_handle"`
	AuthorType   AuthorType `json:"author_type"`
	ContentMD    string     `json:"content_md"`
	CreatedAt    time.Time  `json:"created_at"`
	IsHidden     bool       `json:"is_hidden"`
	Signature    *string    `json:"signature,omitempty"`
}

// Notification is a per-user inbox item. ThreadID is nil for notifications
// not tied to a thread; ReadAt is nil while unread.
type Notification struct {
	ID        int64           `json:"id"`
	ThreadID  *int64          `json:"thread_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ReadAt    *time.Time      `json:"read_at"`
}

func (n Notification) Unread() bool {
	return n.ReadAt == nil
}

// Artifact is the metadata returned after an upload.
type Artifact struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	MIME      string    `json:"mime"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}
