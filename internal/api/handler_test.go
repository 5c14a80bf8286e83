package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/usecase"
)

// MockConn implements repo.Conn for testing
type MockConn struct {
	dialogs       []domain.Dialog
	messages      []domain.Message
	sentID        int
	markReadCalls int
}

func (c *MockConn) Connect(ctx context.Context) error            { return nil }
func (c *MockConn) Disconnect(ctx context.Context) error         { return nil }
func (c *MockConn) Authorized(ctx context.Context) (bool, error) { return true, nil }
func (c *MockConn) SendCode(ctx context.Context) (string, error) { return "hash", nil }
func (c *MockConn) SignIn(ctx context.Context, code, codeHash string) error {
	return nil
}
func (c *MockConn) Self(ctx context.Context) (domain.Entity, error) {
	return domain.Entity{ID: 1, Kind: domain.EntityUser}, nil
}
func (c *MockConn) ResolveEntity(ctx context.Context, identifier string) (domain.Entity, error) {
	return domain.Entity{ID: 42, Kind: domain.EntityGroup}, nil
}
func (c *MockConn) ListDialogs(ctx context.Context, limit int) ([]domain.Dialog, error) {
	return c.dialogs, nil
}
func (c *MockConn) ListMessages(ctx context.Context, entity domain.Entity, limit int, offsetDate time.Time) ([]domain.Message, error) {
	return c.messages, nil
}
func (c *MockConn) SendMessage(ctx context.Context, entity domain.Entity, text string, replyTo int) (int, error) {
	return c.sentID, nil
}
func (c *MockConn) MarkRead(ctx context.Context, entity domain.Entity) error {
	c.markReadCalls++
	return nil
}
func (c *MockConn) Participants(ctx context.Context, entity domain.Entity) ([]domain.Entity, error) {
	return nil, nil
}

// MockAccountRepo implements repo.AccountRepo for testing
type MockAccountRepo struct {
	accounts map[string]*domain.Account
}

func (r *MockAccountRepo) Get(ctx context.Context, phone string) (*domain.Account, error) {
	return r.accounts[phone], nil
}
func (r *MockAccountRepo) Save(ctx context.Context, account *domain.Account) error {
	r.accounts[account.Phone] = account
	return nil
}
func (r *MockAccountRepo) Update(ctx context.Context, phone string, update domain.AccountUpdate) error {
	return nil
}
func (r *MockAccountRepo) Delete(ctx context.Context, phone string) error { return nil }
func (r *MockAccountRepo) ListPhones(ctx context.Context) ([]string, error) {
	return nil, nil
}

type MockFactory struct {
	conn *MockConn
}

func (f *MockFactory) NewConn(account *domain.Account) repo.Conn { return f.conn }

func newTestServer(conn *MockConn, accounts map[string]*domain.Account) *Server {
	if accounts == nil {
		accounts = make(map[string]*domain.Account)
	}
	accountRepo := &MockAccountRepo{accounts: accounts}
	factory := &MockFactory{conn: conn}
	log := zerolog.Nop()

	resolver := usecase.NewResolverUsecase(100, log)
	pool := usecase.NewPoolUsecase(accountRepo, factory, resolver, 3, log)
	locator := usecase.NewLocatorUsecase(pool, resolver, 3)
	auth := usecase.NewAuthUsecase(accountRepo, factory, pool, log)
	chats := usecase.NewChatUsecase(pool, resolver, locator, 100)
	unread := usecase.NewUnreadUsecase(pool, resolver, 100, log)

	return NewServer(auth, chats, unread, ":0", log)
}

func verifiedAccount(phone string) *domain.Account {
	return &domain.Account{
		Phone:       phone,
		APIID:       12345,
		APIHash:     "hash",
		SessionData: []byte("session"),
		Verified:    true,
	}
}

func TestHandleUnread(t *testing.T) {
	conn := &MockConn{
		dialogs: []domain.Dialog{
			{Entity: domain.Entity{ID: 42}, UnreadCount: 2},
		},
		messages: []domain.Message{
			{ID: 30, Text: "hello"},
			{ID: 29, Text: "world"},
		},
	}
	server := newTestServer(conn, map[string]*domain.Account{"+1000": verifiedAccount("+1000")})

	req := httptest.NewRequest(http.MethodGet, "/api/messages/unread?accountPhone=%2B1000&target=42", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result map[string][]domain.Message
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(result["messages"]) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(result["messages"]))
	}
	if conn.markReadCalls != 1 {
		t.Errorf("Expected 1 mark-read call, got %d", conn.markReadCalls)
	}
}

func TestHandleUnreadNotAuthenticated(t *testing.T) {
	server := newTestServer(&MockConn{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/messages/unread?accountPhone=%2B1000&target=42", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestHandleUnreadMissingParams(t *testing.T) {
	server := newTestServer(&MockConn{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/messages/unread?target=42", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleSend(t *testing.T) {
	conn := &MockConn{sentID: 101}
	server := newTestServer(conn, map[string]*domain.Account{"+1000": verifiedAccount("+1000")})

	body, _ := json.Marshal(map[string]interface{}{
		"fromPhone": "+1000",
		"toTarget":  "@alice",
		"content":   map[string]string{"type": "text", "value": "hello"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/messages/send", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if result["messageId"] != 101 {
		t.Errorf("Expected messageId 101, got %d", result["messageId"])
	}
}

func TestHandleSendRejectsNonText(t *testing.T) {
	server := newTestServer(&MockConn{}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"fromPhone": "+1000",
		"toTarget":  "@alice",
		"content":   map[string]string{"type": "photo", "value": "cat.jpg"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/messages/send", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleChats(t *testing.T) {
	conn := &MockConn{
		dialogs: []domain.Dialog{
			{Entity: domain.Entity{ID: 42}, Title: "Team", UnreadCount: 1},
		},
	}
	server := newTestServer(conn, map[string]*domain.Account{"+1000": verifiedAccount("+1000")})

	req := httptest.NewRequest(http.MethodGet, "/api/chats/all?accountPhone=%2B1000", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result map[string][]domain.Dialog
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(result["chats"]) != 1 || result["chats"][0].Title != "Team" {
		t.Errorf("Unexpected chats payload: %s", w.Body.String())
	}
}

func TestHandleSendCodeValidation(t *testing.T) {
	server := newTestServer(&MockConn{}, nil)

	body, _ := json.Marshal(map[string]interface{}{"phone": "+1000"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/send-code", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	server := newTestServer(&MockConn{}, nil)

	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotAuthenticated, http.StatusUnauthorized},
		{domain.ErrTransientConnection, http.StatusServiceUnavailable},
		{domain.ErrEntityNotFound, http.StatusNotFound},
		{domain.ErrPermissionDenied, http.StatusForbidden},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		server.writeDomainError(w, tc.err)
		if w.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(&MockConn{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
