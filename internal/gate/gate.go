// Package gate decides whether a user may use the bot, based on their
// membership in a required channel, and builds the matching reply.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/joingate/internal/telegram"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// RecheckToken is the callback payload of the "check again" button.
	RecheckToken = "check_join"

	// ParseMode is applied to every outgoing message.
	ParseMode = "Markdown"

	// handleSigil marks a public channel username.
	handleSigil = "@"

	joinLinkBase = "https://t.me/"
	tracerName   = "github.com/flemzord/joingate/internal/gate"
)

// ErrMembershipCheckFailed is returned by Evaluate when the membership
// lookup could not produce a status.
var ErrMembershipCheckFailed = errors.New("gate: membership check failed")

// MembershipChecker reports a user's status in a chat.
type MembershipChecker interface {
	MemberStatus(ctx context.Context, chatID string, userID int64) (telegram.MemberStatus, error)
}

// Config is the immutable gate configuration.
type Config struct {
	// ChannelID is the required channel: "@username" or a numeric id.
	ChannelID string

	// JoinURL overrides the link derived from ChannelID. Empty keeps the
	// derived link, which is "https://t.me/" when ChannelID has no "@".
	JoinURL string

	// Messages overrides the reply texts. Empty fields use DefaultMessages.
	Messages Messages
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Admitted bool
	Status   telegram.MemberStatus
	Message  telegram.SendMessageRequest
}

// Gate evaluates membership. It holds no mutable state and is safe for
// concurrent use.
type Gate struct {
	checker   MembershipChecker
	channelID string
	joinURL   string
	messages  Messages
	tracer    trace.Tracer
}

// New creates a Gate backed by checker.
func New(checker MembershipChecker, cfg Config) *Gate {
	joinURL := cfg.JoinURL
	if joinURL == "" {
		joinURL = JoinLink(cfg.ChannelID)
	}
	return &Gate{
		checker:   checker,
		channelID: cfg.ChannelID,
		joinURL:   joinURL,
		messages:  cfg.Messages.withDefaults(),
		tracer:    otel.Tracer(tracerName),
	}
}

// Evaluate looks up userID in the required channel and returns the reply
// addressed to chatID. It sends nothing itself.
func (g *Gate) Evaluate(ctx context.Context, userID, chatID int64) (Decision, error) {
	ctx, span := g.tracer.Start(ctx, "gate.Evaluate", trace.WithAttributes(
		attribute.Int64("telegram.user_id", userID),
		attribute.Int64("telegram.chat_id", chatID),
	))
	defer span.End()

	status, err := g.checker.MemberStatus(ctx, g.channelID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "membership lookup failed")
		return Decision{}, fmt.Errorf("%w: %w", ErrMembershipCheckFailed, err)
	}
	span.SetAttributes(attribute.String("telegram.member_status", string(status)))

	if IsAdmitted(status) {
		return Decision{
			Admitted: true,
			Status:   status,
			Message:  g.welcome(chatID),
		}, nil
	}
	return Decision{
		Status:  status,
		Message: g.joinPrompt(chatID),
	}, nil
}

// Apology returns the fallback reply sent when the lookup failed.
func (g *Gate) Apology(chatID int64) telegram.SendMessageRequest {
	return telegram.SendMessageRequest{
		ChatID:    chatID,
		Text:      g.messages.Apology,
		ParseMode: ParseMode,
	}
}

// JoinURL returns the link used on the join button.
func (g *Gate) JoinURL() string {
	return g.joinURL
}

func (g *Gate) welcome(chatID int64) telegram.SendMessageRequest {
	return telegram.SendMessageRequest{
		ChatID:    chatID,
		Text:      g.messages.Welcome,
		ParseMode: ParseMode,
	}
}

func (g *Gate) joinPrompt(chatID int64) telegram.SendMessageRequest {
	return telegram.SendMessageRequest{
		ChatID:    chatID,
		Text:      g.messages.JoinPrompt,
		ParseMode: ParseMode,
		ReplyMarkup: &telegram.InlineKeyboardMarkup{
			InlineKeyboard: [][]telegram.InlineKeyboardButton{
				{{Text: g.messages.JoinButton, URL: g.joinURL}},
				{{Text: g.messages.RecheckButton, CallbackData: RecheckToken}},
			},
		},
	}
}

// IsAdmitted reports whether status grants access.
func IsAdmitted(status telegram.MemberStatus) bool {
	switch status {
	case telegram.StatusMember, telegram.StatusAdministrator, telegram.StatusCreator:
		return true
	default:
		return false
	}
}

// ChannelHandle returns channelID without its leading "@". Ids without the
// sigil (numeric private channels) yield "".
func ChannelHandle(channelID string) string {
	handle, ok := strings.CutPrefix(channelID, handleSigil)
	if !ok {
		return ""
	}
	return handle
}

// JoinLink builds the public t.me link for channelID.
func JoinLink(channelID string) string {
	return joinLinkBase + ChannelHandle(channelID)
}

// HasPublicHandle reports whether channelID yields a usable join link.
func HasPublicHandle(channelID string) bool {
	return ChannelHandle(channelID) != ""
}
