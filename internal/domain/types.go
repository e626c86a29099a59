package domain

import "time"

type SessionID string
type UserID string
type AgentID string
type TeamID string
type MessageID string
type SourceID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Timestamp = time.Time

// Profile is the part of a user's document the chat client needs to talk to the backend.
type Profile struct {
	UserID    UserID
	TeamID    TeamID
	Namespace string
}
