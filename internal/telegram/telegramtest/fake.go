// Package telegramtest provides an in-memory Bot API fake for tests.
package telegramtest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/joingate/internal/telegram"
)

// FakeAPI answers membership lookups from a table and records every sent
// message. It satisfies the membership and sender interfaces used by the
// gate and the dispatcher. Safe for concurrent use.
type FakeAPI struct {
	mu sync.Mutex

	// Statuses maps user ids to their membership status. Users missing from
	// the map are reported as "left".
	Statuses map[int64]telegram.MemberStatus

	// StatusErr, when set, is returned by every membership lookup.
	StatusErr error

	// SendErr, when set, is returned by every SendMessage call.
	SendErr error

	sent        []telegram.SendMessageRequest
	memberCalls int
	webhook     telegram.SetWebhookRequest
}

// NewFakeAPI returns a FakeAPI seeded with the given statuses.
func NewFakeAPI(statuses map[int64]telegram.MemberStatus) *FakeAPI {
	if statuses == nil {
		statuses = make(map[int64]telegram.MemberStatus)
	}
	return &FakeAPI{Statuses: statuses}
}

// MemberStatus implements the gate's membership lookup.
func (f *FakeAPI) MemberStatus(_ context.Context, _ string, userID int64) (telegram.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls++
	if f.StatusErr != nil {
		return "", f.StatusErr
	}
	if s, ok := f.Statuses[userID]; ok {
		return s, nil
	}
	return telegram.StatusLeft, nil
}

// SendMessage records req and returns a synthetic message.
func (f *FakeAPI) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	f.sent = append(f.sent, req)
	return &telegram.Message{
		MessageID: len(f.sent),
		Chat:      &telegram.Chat{ID: req.ChatID},
		Text:      req.Text,
	}, nil
}

// Sent returns a copy of every message sent so far.
func (f *FakeAPI) Sent() []telegram.SendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]telegram.SendMessageRequest, len(f.sent))
	copy(out, f.sent)
	return out
}

// MemberCalls returns the number of membership lookups served.
func (f *FakeAPI) MemberCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.memberCalls
}

// Webhook returns the last registration made through setWebhook. It is
// zero after deleteWebhook.
func (f *FakeAPI) Webhook() telegram.SetWebhookRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.webhook
}

func (f *FakeAPI) setWebhook(req telegram.SetWebhookRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhook = req
}

// NewServer exposes f over HTTP in the shape of the Bot API, so a real
// telegram.Client can be pointed at it. The server is closed on test cleanup.
func NewServer(t *testing.T, token string, f *FakeAPI) *httptest.Server {
	t.Helper()

	prefix := "/bot" + token + "/"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, ok := strings.CutPrefix(r.URL.Path, prefix)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, telegram.APIResponse[json.RawMessage]{
				ErrorCode: http.StatusUnauthorized, Description: "Unauthorized",
			})
			return
		}
		body, _ := io.ReadAll(r.Body)

		switch method {
		case "getChatMember":
			var req telegram.GetChatMemberRequest
			if err := json.Unmarshal(body, &req); err != nil {
				writeJSON(w, http.StatusBadRequest, telegram.APIResponse[json.RawMessage]{
					ErrorCode: http.StatusBadRequest, Description: "Bad Request: invalid json",
				})
				return
			}
			status, err := f.MemberStatus(r.Context(), req.ChatID, req.UserID)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, telegram.APIResponse[json.RawMessage]{
					ErrorCode: http.StatusBadRequest, Description: err.Error(),
				})
				return
			}
			writeJSON(w, http.StatusOK, telegram.APIResponse[telegram.ChatMember]{
				OK: true, Result: telegram.ChatMember{Status: status},
			})

		case "sendMessage":
			var req telegram.SendMessageRequest
			if err := json.Unmarshal(body, &req); err != nil {
				writeJSON(w, http.StatusBadRequest, telegram.APIResponse[json.RawMessage]{
					ErrorCode: http.StatusBadRequest, Description: "Bad Request: invalid json",
				})
				return
			}
			msg, err := f.SendMessage(r.Context(), req)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, telegram.APIResponse[json.RawMessage]{
					ErrorCode: http.StatusBadRequest, Description: err.Error(),
				})
				return
			}
			writeJSON(w, http.StatusOK, telegram.APIResponse[telegram.Message]{OK: true, Result: *msg})

		case "getMe":
			writeJSON(w, http.StatusOK, telegram.APIResponse[telegram.User]{
				OK: true, Result: telegram.User{ID: 1, IsBot: true, FirstName: "JoinGate", Username: "joingate_test_bot"},
			})

		case "setWebhook":
			var req telegram.SetWebhookRequest
			if err := json.Unmarshal(body, &req); err != nil || req.URL == "" {
				writeJSON(w, http.StatusBadRequest, telegram.APIResponse[json.RawMessage]{
					ErrorCode: http.StatusBadRequest, Description: "Bad Request: bad webhook: An HTTPS URL must be provided for webhook",
				})
				return
			}
			f.setWebhook(req)
			writeJSON(w, http.StatusOK, telegram.APIResponse[bool]{OK: true, Result: true})

		case "deleteWebhook":
			f.setWebhook(telegram.SetWebhookRequest{})
			writeJSON(w, http.StatusOK, telegram.APIResponse[bool]{OK: true, Result: true})

		case "getWebhookInfo":
			hook := f.Webhook()
			writeJSON(w, http.StatusOK, telegram.APIResponse[telegram.WebhookInfo]{
				OK: true, Result: telegram.WebhookInfo{URL: hook.URL, MaxConnections: hook.MaxConnections},
			})

		default:
			writeJSON(w, http.StatusNotFound, telegram.APIResponse[json.RawMessage]{
				ErrorCode: http.StatusNotFound, Description: "Not Found",
			})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
