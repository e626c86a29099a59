package domain

// CountdownState is the live state of a pending confirmation.
type CountdownState string

const (
	CountdownRunning         CountdownState = "running"
	CountdownCancelledByUser CountdownState = "cancelled_by_user"
	// CountdownConfirming means a confirm-source call is in flight; the timer is already gone.
	CountdownConfirming CountdownState = "confirming"
)

// Resolution records how a pending confirmation ended.
type Resolution string

const (
	ResolutionNone            Resolution = ""
	ResolutionAutoConfirmed   Resolution = "auto_confirmed"
	ResolutionConfirmedByUser Resolution = "confirmed_by_user"
)

// Message represents one chat turn in a session.
type Message struct {
	ID        MessageID
	Role      Role
	Content   string
	CreatedAt Timestamp

	// Answer payload, only on assistant messages
	Metadata *AnswerMetadata
	SQL      string
	Table    *TableResult

	// Pending is set while the backend waits for a source to be confirmed.
	// Once cleared it is never set again for the same message.
	Pending *PendingConfirmation

	Resolution   Resolution
	ChosenSource string

	// Failed marks an assistant turn whose content reports an error instead of an answer.
	Failed bool
}

// IsFinal reports whether the message content is the final answer for its turn.
func (m Message) IsFinal() bool {
	return m.Pending == nil
}

// Clone returns a deep enough copy for observers; the pending record is not shared.
func (m Message) Clone() Message {
	out := m
	if m.Pending != nil {
		p := *m.Pending
		out.Pending = &p
	}
	return out
}

// PendingConfirmation is owned by its message and dies with the confirmation.
type PendingConfirmation struct {
	SuggestedLabel   string
	SecondsRemaining int
	State            CountdownState

	Query     string
	Namespace string
	AgentID   AgentID
	UserID    UserID
	TeamID    TeamID
}

// RetrievedChunk is one piece of context the backend used for an answer.
type RetrievedChunk struct {
	Content string  `json:"content,omitempty"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

type AnswerMetadata struct {
	Chunks []RetrievedChunk `json:"chunks,omitempty"`
}

// TableResult is the tabular payload of an answer over a table source.
type TableResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}
