// Package bot announces achievement unlocks to a Telegram community chat.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"compost-tracker/internal/config"
	"compost-tracker/internal/model"
)

// Sender is the part of *tele.Bot the announcer needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Announcer posts unlock messages to one chat.
type Announcer struct {
	sender Sender
	chat   tele.Recipient
}

// New creates an Announcer for the configured chat. The bot only sends,
// so no poller is started.
func New(cfg *config.TelegramConfig) (*Announcer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: true,
		OnError: func(err error, _ tele.Context) {
			log.Error().Err(err).Msg("Telegram error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info().Int64("chat_id", cfg.ChatID).Msg("Telegram announcer enabled")

	return NewWithSender(teleBot, tele.ChatID(cfg.ChatID)), nil
}

// NewWithSender creates an Announcer on top of an existing sender.
func NewWithSender(sender Sender, chat tele.Recipient) *Announcer {
	return &Announcer{sender: sender, chat: chat}
}

// AnnounceUnlocks posts one message listing every new achievement.
func (a *Announcer) AnnounceUnlocks(ctx context.Context, user *model.User, unlocked []*model.Achievement) error {
	if len(unlocked) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := a.sender.Send(a.chat, FormatUnlocks(user, unlocked), tele.ModeHTML, tele.Silent); err != nil {
		return fmt.Errorf("failed to send announcement: %w", err)
	}
	return nil
}

// FormatUnlocks renders the HTML announcement text.
func FormatUnlocks(user *model.User, unlocked []*model.Achievement) string {
	name := "A composter"
	if user != nil && user.Username != "" {
		name = user.Username
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 <b>%s</b> unlocked:\n", html.EscapeString(name))
	for _, a := range unlocked {
		fmt.Fprintf(&sb, "%s %s\n", a.Icon, html.EscapeString(a.Name))
	}
	return strings.TrimRight(sb.String(), "\n")
}
