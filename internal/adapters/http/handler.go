package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/sourcechat/internal/app/chat"
	"github.com/PabloGalante/sourcechat/internal/app/feedback"
	"github.com/PabloGalante/sourcechat/internal/domain"
	"github.com/PabloGalante/sourcechat/internal/observability"
)

type Server struct {
	svc      *chat.Service
	feedback *feedback.Service
}

func NewServer(svc *chat.Service, fb *feedback.Service) http.Handler {
	s := &Server{svc: svc, feedback: fb}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /sessions → start session (POST), list a user's sessions (GET ?user_id=)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}                           → GET timeline, DELETE end
	// /sessions/{id}/messages                  → POST ask
	// /sessions/{id}/agent                     → PUT switch agent
	// /sessions/{id}/messages/{mid}/{action}   → POST picker | confirm | rating
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	// /agents/{id}/ratings?limit=N → GET latest ratings
	mux.HandleFunc("/agents/", s.handleAgentRatings)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
}

type sessionResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	AgentID   string            `json:"agent_id"`
	Awaiting  bool              `json:"awaiting"`
	CreatedAt time.Time         `json:"created_at"`
	Sources   []sourceResponse  `json:"sources"`
	Messages  []messageResponse `json:"messages"`
}

type sessionSummaryResponse struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agent_id"`
	Awaiting     bool      `json:"awaiting"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type sourceResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Nickname    string `json:"nickname,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type pendingResponse struct {
	SuggestedSource  string `json:"suggested_source"`
	SecondsRemaining int    `json:"seconds_remaining"`
	State            string `json:"state"`
}

type messageResponse struct {
	ID           string                 `json:"id"`
	Role         string                 `json:"role"`
	Content      string                 `json:"content"`
	CreatedAt    time.Time              `json:"created_at"`
	SQL          string                 `json:"sql,omitempty"`
	Table        *domain.TableResult    `json:"table,omitempty"`
	Metadata     *domain.AnswerMetadata `json:"metadata,omitempty"`
	Pending      *pendingResponse       `json:"pending_confirmation,omitempty"`
	Resolution   string                 `json:"resolution,omitempty"`
	ChosenSource string                 `json:"chosen_source,omitempty"`
	Failed       bool                   `json:"failed,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
}

type pickerResponse struct {
	Message messageResponse  `json:"message"`
	Sources []sourceResponse `json:"sources"`
}

type confirmRequest struct {
	Nickname string `json:"nickname"`
}

type ratingRequest struct {
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

type ratingResponse struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

type agentRatingsResponse struct {
	AgentID string           `json:"agent_id"`
	Summary feedback.Summary `json:"summary"`
	Ratings []*domain.Rating `json:"ratings"`
}

type switchAgentRequest struct {
	AgentID string `json:"agent_id"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}[/...]
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := domain.SessionID(parts[0])

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, id)
		case http.MethodDelete:
			s.handleEndSession(w, r, id)
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 2 && parts[1] == "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendMessage(w, r, id)

	case len(parts) == 2 && parts[1] == "agent":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		s.handleSwitchAgent(w, r, id)

	case len(parts) == 4 && parts[1] == "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		msgID := domain.MessageID(parts[2])
		switch parts[3] {
		case "picker":
			s.handleOpenPicker(w, r, id, msgID)
		case "confirm":
			s.handleConfirm(w, r, id, msgID)
		case "rating":
			s.handleRating(w, r, id, msgID)
		default:
			http.NotFound(w, r)
		}

	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.AgentID == "" {
		badRequest(w, "agent_id is required")
		return
	}

	out, err := s.svc.StartSession(r.Context(), chat.StartSessionInput{
		UserID:  domain.UserID(req.UserID),
		AgentID: domain.AgentID(req.AgentID),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(out.Session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	sessions := s.svc.Sessions(domain.UserID(userID))
	out := make([]sessionSummaryResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionSummaryResponse{
			ID:           string(sess.ID()),
			AgentID:      string(sess.AgentID()),
			Awaiting:     sess.Awaiting(),
			MessageCount: len(sess.Messages()),
			CreatedAt:    sess.CreatedAt(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	sess, err := s.svc.Session(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if err := s.svc.EndSession(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	sess, err := s.svc.Session(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// one question at a time per session, like the chat input being disabled.
	// The turn finishes even if the caller goes away; its result stays in the timeline.
	reply, err := sess.TrySend(context.WithoutCancel(r.Context()), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := sendMessageResponse{AssistantMessage: toMessageResponse(reply)}
	msgs := sess.Messages()
	for i, m := range msgs {
		if m.ID == reply.ID && i > 0 {
			resp.UserMessage = toMessageResponse(msgs[i-1])
			break
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenPicker(w http.ResponseWriter, r *http.Request, id domain.SessionID, msgID domain.MessageID) {
	sess, err := s.svc.Session(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sources, err := sess.OpenPicker(msgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, _ := sess.Message(msgID)

	writeJSON(w, http.StatusOK, pickerResponse{
		Message: toMessageResponse(msg),
		Sources: toSourcesResponse(sources),
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, id domain.SessionID, msgID domain.MessageID) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	sess, err := s.svc.Session(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := sess.ConfirmSource(context.WithoutCancel(r.Context()), msgID, req.Nickname)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request, id domain.SessionID, msgID domain.MessageID) {
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	value, ok := domain.ParseRatingValue(strings.ToLower(strings.TrimSpace(req.Value)))
	if !ok {
		badRequest(w, "value must be up or down")
		return
	}

	rating, err := s.svc.RateMessage(r.Context(), chat.RateMessageInput{
		SessionID: id,
		MessageID: msgID,
		Value:     value,
		Comment:   req.Comment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ratingResponse{
		ID:        rating.ID,
		MessageID: string(rating.MessageID),
		Value:     string(rating.Value),
		CreatedAt: rating.CreatedAt,
	})
}

func (s *Server) handleSwitchAgent(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	var req switchAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.AgentID == "" {
		badRequest(w, "agent_id is required")
		return
	}

	sess, err := s.svc.SwitchAgent(r.Context(), id, domain.AgentID(req.AgentID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

// /agents/{id}/ratings
func (s *Server) handleAgentRatings(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/agents/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "ratings" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	agentID := domain.AgentID(parts[0])
	ratings, sum, err := s.feedback.AgentRatings(r.Context(), agentID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, agentRatingsResponse{
		AgentID: string(agentID),
		Summary: sum,
		Ratings: ratings,
	})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *chat.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID()),
		UserID:    string(s.UserID()),
		AgentID:   string(s.AgentID()),
		Awaiting:  s.Awaiting(),
		CreatedAt: s.CreatedAt(),
		Sources:   toSourcesResponse(s.Sources()),
		Messages:  toMessagesResponse(s.Messages()),
	}
}

func toSourcesResponse(sources []domain.Source) []sourceResponse {
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, sourceResponse{
			ID:          string(src.ID),
			Label:       src.Label(),
			Nickname:    src.Nickname,
			Name:        src.Name,
			Type:        string(src.Type),
			Description: src.Description,
		})
	}
	return out
}

func toMessageResponse(m domain.Message) messageResponse {
	resp := messageResponse{
		ID:           string(m.ID),
		Role:         string(m.Role),
		Content:      m.Content,
		CreatedAt:    m.CreatedAt,
		SQL:          m.SQL,
		Table:        m.Table,
		Metadata:     m.Metadata,
		Resolution:   string(m.Resolution),
		ChosenSource: m.ChosenSource,
		Failed:       m.Failed,
	}
	if m.Pending != nil {
		resp.Pending = &pendingResponse{
			SuggestedSource:  m.Pending.SuggestedLabel,
			SecondsRemaining: m.Pending.SecondsRemaining,
			State:            string(m.Pending.State),
		}
	}
	return resp
}

func toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnknownMessage):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotPending), errors.Is(err, domain.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyQuestion):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrSessionClosed):
		writeJSON(w, http.StatusGone, map[string]string{"error": err.Error()})
	default:
		internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
