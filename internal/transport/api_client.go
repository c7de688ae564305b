package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"chatsphere/internal/config"
	"chatsphere/internal/domain"
	"chatsphere/internal/transport/httpdto"
	chat_errors "chatsphere/pkg/errors"
	"chatsphere/pkg/logger"
)

// APIClient talks to the remote chat service over its REST surface. Each call
// carries the session token; the server enforces authorization, the client
// only maps its answers onto sentinel errors.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

func NewAPIClient(cfg config.Remote, token string, log *logger.Logger) *APIClient {
	return &APIClient{
		baseURL: cfg.APIBaseURL,
		token:   token,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		log:     log,
	}
}

// GetMessages fetches the full history window for a conversation.
func (c *APIClient) GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var out httpdto.MessagesResponse
	path := fmt.Sprintf("/v1/conversations/%s/messages", url.PathEscape(conversationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// PostMessage submits a send and returns the confirmed message with its
// server identity and sequence.
func (c *APIClient) PostMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	req := httpdto.SendMessageRequest{
		ClientID:       msg.ClientID,
		ConversationID: msg.ConversationID,
		Text:           msg.Text,
		ReplyTo:        msg.ReplyTo,
		Attachment:     msg.Attachment,
	}
	var out domain.Message
	if err := c.do(ctx, http.MethodPost, "/v1/messages", req, &out); err != nil {
		return domain.Message{}, err
	}
	return out, nil
}

// DeleteMessage confirms a local delete with the server. A message the server
// no longer has counts as already deleted.
func (c *APIClient) DeleteMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/v1/messages/%s", url.PathEscape(messageID))
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if errors.Is(err, chat_errors.ErrNotFound) {
		return fmt.Errorf("%w: message already gone", chat_errors.ErrConflict)
	}
	return err
}

// UpdateProfile proxies the profile mutation and returns the stored profile.
func (c *APIClient) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	req := httpdto.ProfileUpdateRequest{
		FullName:  update.FullName,
		Bio:       update.Bio,
		AvatarURL: update.AvatarURL,
	}
	var out domain.User
	if err := c.do(ctx, http.MethodPut, "/v1/users/me", req, &out); err != nil {
		return domain.User{}, err
	}
	return out, nil
}

// do issues one request and decodes the wrapped response into out. Transport
// failures and status codes are folded onto the sentinel errors the
// controller branches on.
func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", chat_errors.ErrTimeout, method, path)
		}
		return fmt.Errorf("%w: %v", chat_errors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr httpdto.Response[json.RawMessage]
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return statusError(resp.StatusCode, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	var wrapped httpdto.Response[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&wrapped); err != nil {
		return fmt.Errorf("%w: malformed response: %v", chat_errors.ErrNetwork, err)
	}
	if len(wrapped.Data) == 0 {
		return fmt.Errorf("%w: empty response payload", chat_errors.ErrNetwork)
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", chat_errors.ErrNetwork, err)
	}
	return nil
}

func statusError(status int, message string) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = chat_errors.ErrUnauthorized
	case status == http.StatusNotFound:
		sentinel = chat_errors.ErrNotFound
	case status == http.StatusConflict:
		sentinel = chat_errors.ErrConflict
	case status == http.StatusRequestTimeout:
		sentinel = chat_errors.ErrTimeout
	case status >= 500:
		sentinel = chat_errors.ErrNetwork
	default:
		sentinel = chat_errors.ErrValidation
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s (status %d)", sentinel, message, status)
}
