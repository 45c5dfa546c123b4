package models

// ChatRole identifies the author of a transcript message
type ChatRole string

const (
	RoleAI   ChatRole = "ai"
	RoleUser ChatRole = "user"
)

// ChatMessage is one entry of the interview transcript. IDs are monotonic
// per session; the transcript is append-only.
type ChatMessage struct {
	ID       int      `json:"id"`
	Role     ChatRole `json:"role"`
	Text     string   `json:"text"`
	Terminal bool     `json:"terminal,omitempty"`
}

// ChatLog is the backend's persisted transcript shape: one user prompt
// paired with the AI response it produced.
type ChatLog struct {
	ID         int    `json:"id"`
	UserPrompt string `json:"user_prompt"`
	AIResponse string `json:"ai_response"`
}
