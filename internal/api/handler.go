package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/usecase"
)

// Server provides the HTTP API of the gateway
type Server struct {
	auth   *usecase.AuthUsecase
	chats  *usecase.ChatUsecase
	unread *usecase.UnreadUsecase
	log    zerolog.Logger

	server *http.Server
	addr   string
}

// NewServer creates a new API server
func NewServer(auth *usecase.AuthUsecase, chats *usecase.ChatUsecase, unread *usecase.UnreadUsecase, addr string, log zerolog.Logger) *Server {
	return &Server{
		auth:   auth,
		chats:  chats,
		unread: unread,
		addr:   addr,
		log:    log,
	}
}

// Router builds the route table. Split out of Start for the tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(s.log))

	// Authentication
	r.HandleFunc("/api/auth/send-code", s.handleSendCode).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/verify-code", s.handleVerifyCode).Methods(http.MethodPost)

	// Messages
	r.HandleFunc("/api/messages/unread", s.handleUnread).Methods(http.MethodGet)
	r.HandleFunc("/api/messages/send", s.handleSend).Methods(http.MethodPost)

	// Chats
	r.HandleFunc("/api/chats/all", s.handleChats).Methods(http.MethodGet)
	r.HandleFunc("/api/chat-messages", s.handleChatMessages).Methods(http.MethodGet)
	r.HandleFunc("/api/participants", s.handleParticipants).Methods(http.MethodGet)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	s.log.Info().Str("addr", s.addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server, bounded by ctx
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Auth Handlers ============

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone   string `json:"phone"`
		APIID   int    `json:"apiId"`
		APIHash string `json:"apiHash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Phone == "" || req.APIID == 0 || req.APIHash == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("phone, apiId and apiHash are required"))
		return
	}

	if err := s.auth.SendCode(r.Context(), req.Phone, req.APIID, req.APIHash); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Phone == "" || req.Code == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("phone and code are required"))
		return
	}

	if err := s.auth.VerifyCode(r.Context(), req.Phone, req.Code); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true})
}

// ============ Message Handlers ============

func (s *Server) handleUnread(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("accountPhone")
	target := r.URL.Query().Get("target")
	if phone == "" || target == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("accountPhone and target are required"))
		return
	}

	msgs, err := s.unread.GetUnreadMessages(r.Context(), phone, target)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Optional cap on the returned batch. The full unread set is still
	// marked read; limit only trims the response.
	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit > 0 && limit < len(msgs) {
			msgs = msgs[:limit]
		}
	}
	s.writeJSON(w, map[string]interface{}{"messages": msgs})
}

// MessageContent is the typed payload of a send request
type MessageContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromPhone        string         `json:"fromPhone"`
		ToTarget         string         `json:"toTarget"`
		Content          MessageContent `json:"content"`
		ReplyTo          int            `json:"replyTo"`
		ReplyToTimestamp string         `json:"replyToTimestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.FromPhone == "" || req.ToTarget == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("fromPhone and toTarget are required"))
		return
	}
	if req.Content.Type != "" && req.Content.Type != "text" {
		s.writeError(w, http.StatusBadRequest, errors.New("only text content is supported"))
		return
	}
	if req.Content.Value == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("content.value is required"))
		return
	}

	id, err := s.chats.Send(r.Context(), usecase.SendRequest{
		FromPhone:        req.FromPhone,
		ToTarget:         req.ToTarget,
		Text:             req.Content.Value,
		ReplyTo:          req.ReplyTo,
		ReplyToTimestamp: req.ReplyToTimestamp,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"messageId": id})
}

// ============ Chat Handlers ============

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("accountPhone")
	if phone == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("accountPhone is required"))
		return
	}

	dialogs, err := s.chats.ListChats(r.Context(), phone)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"chats": dialogs})
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	chatID := r.URL.Query().Get("chatId")
	if phone == "" || chatID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("phone and chatId are required"))
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	msgs, err := s.chats.ChatMessages(r.Context(), phone, chatID, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"messages": msgs})
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	chatID := r.URL.Query().Get("chatId")
	if phone == "" || chatID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("phone and chatId are required"))
		return
	}

	participants, err := s.chats.Participants(r.Context(), phone, chatID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"participants": participants})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeDomainError maps the error taxonomy onto HTTP statuses
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrTransientConnection):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEntityNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	}
	s.writeError(w, status, err)
}
