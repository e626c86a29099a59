package domain

import (
	"encoding/json"
	"strings"
)

// AskRequest is the body of the ask endpoint.
type AskRequest struct {
	UserID        UserID  `json:"userid"`
	TeamID        TeamID  `json:"team_id"`
	Namespace     string  `json:"namespace"`
	Query         string  `json:"query"`
	AgentID       AgentID `json:"agent_id"`
	Nickname      string  `json:"nickname"`
	RequestID     string  `json:"requestId"`
	ModelProvider string  `json:"model_provider"`
}

// ConfirmRequest is the body of the confirm-source endpoint.
type ConfirmRequest struct {
	UserID           UserID  `json:"userid"`
	TeamID           TeamID  `json:"team_id"`
	Namespace        string  `json:"namespace"`
	Query            string  `json:"query"`
	Nickname         string  `json:"nickname"`
	AgentID          AgentID `json:"agent_id"`
	RequestID        string  `json:"requestId"`
	SourceSuggestion string  `json:"sourceSuggestion"`
	ModelProvider    string  `json:"model_provider"`
}

// AnswerResponse is shared by both endpoints.
type AnswerResponse struct {
	Answer             string          `json:"answer,omitempty"`
	ResponseSummarized string          `json:"response_summarized,omitempty"`
	SQL                string          `json:"sql,omitempty"`
	Table              *TableResult    `json:"table,omitempty"`
	ChosenNickname     string          `json:"chosen_nickname,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	Success            *bool           `json:"success,omitempty"`

	// Populated by some backends on failure.
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AnswerText returns the summarized form first, then the plain answer.
func (r *AnswerResponse) AnswerText() string {
	if strings.TrimSpace(r.ResponseSummarized) != "" {
		return r.ResponseSummarized
	}
	return r.Answer
}

// NeedsConfirmation is true when the backend suggests a source but gave no answer.
func (r *AnswerResponse) NeedsConfirmation() bool {
	return r.AnswerText() == "" && r.ChosenNickname != ""
}

// Failed reports an explicit success:false.
func (r *AnswerResponse) Failed() bool {
	return r.Success != nil && !*r.Success
}

// FailureReason picks the most useful remote error text.
func (r *AnswerResponse) FailureReason() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Message != "":
		return r.Message
	default:
		return "request was not successful"
	}
}

// ParsedMetadata accepts either {"chunks": [...]} or a bare chunk array.
// Unknown shapes yield nil rather than an error: metadata is for inspection only.
func (r *AnswerResponse) ParsedMetadata() *AnswerMetadata {
	if len(r.Metadata) == 0 || string(r.Metadata) == "null" {
		return nil
	}

	var md AnswerMetadata
	if err := json.Unmarshal(r.Metadata, &md); err == nil && len(md.Chunks) > 0 {
		return &md
	}

	var chunks []RetrievedChunk
	if err := json.Unmarshal(r.Metadata, &chunks); err == nil && len(chunks) > 0 {
		return &AnswerMetadata{Chunks: chunks}
	}
	return nil
}
