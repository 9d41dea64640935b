package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flemzord/joingate/internal/telegram"
)

// ErrMalformedUpdate is returned by ParseUpdate when the body is not a
// usable update. The caller acknowledges it without replying.
var ErrMalformedUpdate = errors.New("dispatch: malformed update")

// Kind tags the variant held by an Update.
type Kind int

// Update variants.
const (
	KindUnknown Kind = iota
	KindMessage
	KindCallback
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindCallback:
		return "callback_query"
	default:
		return "unknown"
	}
}

// MessageEvent is a validated incoming message.
type MessageEvent struct {
	ChatID int64
	UserID int64
	Text   string
}

// CallbackEvent is a validated button press. ChatID is only meaningful when
// HasChat is true; callbacks on inline-mode messages carry no chat.
type CallbackEvent struct {
	ID      string
	ChatID  int64
	HasChat bool
	UserID  int64
	Data    string
}

// Update is an incoming update reduced to the variant the gate cares about.
// Exactly one of Message or Callback is set, matching Kind; both are nil for
// KindUnknown.
type Update struct {
	ID       int
	Kind     Kind
	Message  *MessageEvent
	Callback *CallbackEvent
}

// ParseUpdate decodes and validates a webhook body.
func ParseUpdate(body []byte) (Update, error) {
	var raw telegram.Update
	if err := json.Unmarshal(body, &raw); err != nil {
		return Update{}, fmt.Errorf("%w: %w", ErrMalformedUpdate, err)
	}
	return FromTelegram(raw)
}

// FromTelegram classifies a decoded Bot API update. A message takes
// precedence over a callback query when both are present.
func FromTelegram(raw telegram.Update) (Update, error) {
	u := Update{ID: raw.UpdateID}

	switch {
	case raw.Message != nil:
		m := raw.Message
		if m.Chat == nil {
			return u, fmt.Errorf("%w: message without chat", ErrMalformedUpdate)
		}
		if m.From == nil {
			return u, fmt.Errorf("%w: message without sender", ErrMalformedUpdate)
		}
		u.Kind = KindMessage
		u.Message = &MessageEvent{ChatID: m.Chat.ID, UserID: m.From.ID, Text: m.Text}

	case raw.CallbackQuery != nil:
		cb := raw.CallbackQuery
		if cb.From == nil {
			return u, fmt.Errorf("%w: callback query without sender", ErrMalformedUpdate)
		}
		ev := &CallbackEvent{ID: cb.ID, UserID: cb.From.ID, Data: cb.Data}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
			ev.HasChat = true
		}
		u.Kind = KindCallback
		u.Callback = ev

	default:
		u.Kind = KindUnknown
	}

	return u, nil
}
