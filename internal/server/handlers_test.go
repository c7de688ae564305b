package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsphere/internal/auth"
	"chatsphere/internal/config"
	"chatsphere/internal/controller"
	"chatsphere/internal/domain"
	"chatsphere/pkg/logger"
)

type stubAPI struct{}

func (stubAPI) GetMessages(context.Context, string) ([]domain.Message, error) { return nil, nil }
func (stubAPI) PostMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	msg.ID = "m1"
	msg.Seq = 1
	msg.Status = domain.StatusSent
	return msg, nil
}
func (stubAPI) DeleteMessage(context.Context, string) error { return nil }
func (stubAPI) UpdateProfile(_ context.Context, u domain.ProfileUpdate) (domain.User, error) {
	return domain.User{ID: "me", FullName: u.FullName}, nil
}

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Server.Environment = TestMode
	cfg.Server.SessionSecret = "test-secret"

	ctrl := controller.New(cfg, controller.Options{
		SelfID: "me",
		API:    stubAPI{},
		Log:    logger.NewNop(),
	})
	ctrl.Start()
	t.Cleanup(ctrl.Close)

	srv := New(cfg, logger.NewNop())
	srv.SetupRoutes(ctrl, auth.NewVerifier(cfg.Server.SessionSecret), "me")

	claims := jwt.RegisteredClaims{
		Subject:   "me",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return srv, token
}

func doJSON(t *testing.T, srv *Server, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresToken(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, "", http.MethodGet, "/api/conversations/peer-1/messages", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRejectsForeignToken(t *testing.T) {
	srv, _ := testServer(t)

	claims := jwt.RegisteredClaims{
		Subject:   "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	rec := doJSON(t, srv, token, http.MethodGet, "/api/conversations/peer-1/messages", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendMessageEndpoint(t *testing.T) {
	srv, token := testServer(t)

	rec := doJSON(t, srv, token, http.MethodPost, "/api/conversations/peer-1/messages",
		map[string]string{"text": "hi"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    domain.Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, domain.StatusPending, resp.Data.Status)
	assert.NotEmpty(t, resp.Data.ClientID)

	rec = doJSON(t, srv, token, http.MethodGet, "/api/conversations/peer-1/messages", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hi")
}

func TestSendMessageValidation(t *testing.T) {
	srv, token := testServer(t)

	rec := doJSON(t, srv, token, http.MethodPost, "/api/conversations/peer-1/messages",
		map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, token, http.MethodPost, "/api/conversations/peer-1/messages",
		map[string]interface{}{"file_name": "setup.exe", "file_size": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteUnknownMessageEndpoint(t *testing.T) {
	srv, token := testServer(t)

	rec := doJSON(t, srv, token, http.MethodDelete, "/api/conversations/peer-1/messages/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTypingEndpoints(t *testing.T) {
	srv, token := testServer(t)

	rec := doJSON(t, srv, token, http.MethodPost, "/api/conversations/peer-1/typing",
		map[string]bool{"has_text": true})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, token, http.MethodGet, "/api/conversations/peer-1/typing", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "local_typing")
}

func TestUnseenEndpoint(t *testing.T) {
	srv, token := testServer(t)

	rec := doJSON(t, srv, token, http.MethodGet, "/api/conversations/peer-1/unseen", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestProfileEndpoint(t *testing.T) {
	srv, token := testServer(t)

	rec := doJSON(t, srv, token, http.MethodPut, "/api/profile",
		map[string]string{"full_name": "Sam"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sam")
}

func TestPingIsPublic(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, "", http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
