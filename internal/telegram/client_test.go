package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (o *recordingObserver) ObserveRequest(method string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method)
	o.errs = append(o.errs, err)
}

func TestGetChatMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getChatMember" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		body, _ := io.ReadAll(r.Body)
		var req GetChatMemberRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if req.ChatID != "@mychannel" {
			t.Errorf("ChatID = %q, want %q", req.ChatID, "@mychannel")
		}
		if req.UserID != 777 {
			t.Errorf("UserID = %d, want 777", req.UserID)
		}

		writeJSON(t, w, APIResponse[ChatMember]{
			OK:     true,
			Result: ChatMember{Status: StatusAdministrator, User: &User{ID: 777}},
		})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	status, err := client.MemberStatus(context.Background(), "@mychannel", 777)
	if err != nil {
		t.Fatalf("MemberStatus() error: %v", err)
	}
	if status != StatusAdministrator {
		t.Errorf("status = %q, want %q", status, StatusAdministrator)
	}
}

func TestMemberStatus_MissingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	_, err := client.MemberStatus(context.Background(), "@c", 1)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestSendMessage_WithKeyboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if raw["parse_mode"] != "Markdown" {
			t.Errorf("parse_mode = %v, want Markdown", raw["parse_mode"])
		}
		markup, ok := raw["reply_markup"].(map[string]any)
		if !ok {
			t.Fatalf("reply_markup missing: %v", raw)
		}
		rows, ok := markup["inline_keyboard"].([]any)
		if !ok || len(rows) != 2 {
			t.Fatalf("inline_keyboard = %v, want 2 rows", markup["inline_keyboard"])
		}
		first := rows[0].([]any)[0].(map[string]any)
		if first["url"] != "https://t.me/mychannel" {
			t.Errorf("row 0 url = %v", first["url"])
		}
		if _, has := first["callback_data"]; has {
			t.Error("row 0 should not carry callback_data")
		}
		second := rows[1].([]any)[0].(map[string]any)
		if second["callback_data"] != "check_join" {
			t.Errorf("row 1 callback_data = %v", second["callback_data"])
		}

		writeJSON(t, w, APIResponse[Message]{
			OK:     true,
			Result: Message{MessageID: 99, Chat: &Chat{ID: 42}},
		})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	msg, err := client.SendMessage(context.Background(), SendMessageRequest{
		ChatID:    42,
		Text:      "join",
		ParseMode: "Markdown",
		ReplyMarkup: &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
			{{Text: "join", URL: "https://t.me/mychannel"}},
			{{Text: "recheck", CallbackData: "check_join"}},
		}},
	})
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if msg.MessageID != 99 {
		t.Errorf("MessageID = %d, want 99", msg.MessageID)
	}
}

func TestSendMessage_NoKeyboardOmitsReplyMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "reply_markup") {
			t.Errorf("body should omit reply_markup: %s", body)
		}
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 1}})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	if _, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "hi"}); err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, APIResponse[json.RawMessage]{
			OK:          false,
			ErrorCode:   400,
			Description: "Bad Request: chat not found",
		})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	_, err := client.GetChatMember(context.Background(), GetChatMemberRequest{ChatID: "@nope", UserID: 1})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Code != 400 {
		t.Errorf("Code = %d, want 400", apiErr.Code)
	}
	if apiErr.Method != "getChatMember" {
		t.Errorf("Method = %q, want getChatMember", apiErr.Method)
	}
	if !strings.Contains(apiErr.Error(), "chat not found") {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	_, err := client.MemberStatus(context.Background(), "@c", 1)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != http.StatusBadGateway {
		t.Errorf("Code = %d, want %d", apiErr.Code, http.StatusBadGateway)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL)
	_, err := client.MemberStatus(context.Background(), "@c", 1)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestTransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewClient("123456:SECRET-token", base, WithTimeout(2*time.Second))
	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if strings.Contains(err.Error(), "SECRET-token") {
		t.Errorf("error leaks token: %v", err)
	}
}

func TestObserverReceivesEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			writeJSON(t, w, APIResponse[User]{OK: true, Result: User{ID: 1, IsBot: true}})
			return
		}
		writeJSON(t, w, APIResponse[json.RawMessage]{OK: false, ErrorCode: 403, Description: "Forbidden"})
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := NewClient("TOKEN", srv.URL, WithObserver(obs))

	if _, err := client.GetMe(context.Background()); err != nil {
		t.Fatalf("GetMe() error: %v", err)
	}
	if _, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"}); err == nil {
		t.Fatal("expected error from sendMessage")
	}

	if len(obs.calls) != 2 {
		t.Fatalf("observer calls = %d, want 2", len(obs.calls))
	}
	if obs.calls[0] != "getMe" || obs.errs[0] != nil {
		t.Errorf("call 0 = %s (%v)", obs.calls[0], obs.errs[0])
	}
	if obs.calls[1] != "sendMessage" || obs.errs[1] == nil {
		t.Errorf("call 1 = %s (%v)", obs.calls[1], obs.errs[1])
	}
}

func TestWebhookManagement(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/setWebhook":
			var req SetWebhookRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotURL = req.URL
			writeJSON(t, w, APIResponse[bool]{OK: true, Result: true})
		case "/botTOKEN/getWebhookInfo":
			writeJSON(t, w, APIResponse[WebhookInfo]{OK: true, Result: WebhookInfo{URL: gotURL, PendingUpdateCount: 3}})
		case "/botTOKEN/deleteWebhook":
			gotURL = ""
			writeJSON(t, w, APIResponse[bool]{OK: true, Result: true})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := NewClient("TOKEN", srv.URL)

	if err := client.SetWebhook(ctx, SetWebhookRequest{URL: "https://bot.example.com/webhook"}); err != nil {
		t.Fatalf("SetWebhook() error: %v", err)
	}
	info, err := client.GetWebhookInfo(ctx)
	if err != nil {
		t.Fatalf("GetWebhookInfo() error: %v", err)
	}
	if info.URL != "https://bot.example.com/webhook" || info.PendingUpdateCount != 3 {
		t.Errorf("info = %+v", info)
	}
	if err := client.DeleteWebhook(ctx, DeleteWebhookRequest{}); err != nil {
		t.Fatalf("DeleteWebhook() error: %v", err)
	}
	if gotURL != "" {
		t.Errorf("webhook still set: %q", gotURL)
	}
}
