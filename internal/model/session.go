package model

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Session struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Ctime int64  `json:"ctime"`
	Mtime int64  `json:"mtime"`
}

type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Ctime     int64       `json:"ctime"`
}

// SessionDocument is the summarized form of a document a user attached to a
// session. Only the summary enters prompts; raw text stays with the upload
// pipeline.
type SessionDocument struct {
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	Name          string `json:"name"`
	Summary       string `json:"summary"`
	TokenEstimate int    `json:"token_estimate"`
	Ctime         int64  `json:"ctime"`
}
