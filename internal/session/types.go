// Package session provides the file-backed session store: per-user,
// per-feature conversation threads persisted as a versioned index plus
// one JSONL turn log per session.
//
// On-disk layout under the store root:
//
//	<root>/<user>/<feature>/sessions.json              index
//	<root>/<user>/<feature>/<session-id>/turns.jsonl   ordered turn log
//	<root>/<user>/<feature>/<session-id>/attachments/  binary attachments
//
// Every mutation takes a per-(user, feature) file lock via
// [github.com/gofrs/flock] and rewrites whole files through a temp file
// + rename, so concurrent processes never lose updates and a crash
// mid-write never corrupts previously durable data.
package session

import "time"

// Role constants for turn authorship.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// recordVersion is the schema version stamped on every persisted record.
const recordVersion = 1

// Session is one named conversation thread scoped to a user and a
// feature.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is one role-tagged message within a session. Attachment, when
// set, is a path relative to the session directory; turns never carry
// raw attachment bytes once persisted.
type Turn struct {
	V          int                `json:"v"`
	Role       string             `json:"role"`
	Content    string             `json:"content"`
	Attachment string             `json:"attachment,omitempty"`
	Meta       map[string]float64 `json:"meta,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// index is the on-disk sessions.json layout for one (user, feature)
// pair. Order is creation order.
type index struct {
	Version  int        `json:"version"`
	Sessions []*Session `json:"sessions"`
}
