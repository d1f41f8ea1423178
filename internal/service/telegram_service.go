package service

import (
	"fmt"
	"strings"

	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramService posts short operator alerts to a chat. It is an event bus
// subscriber only; a failed send is logged by the bus and never reaches the
// HTTP caller.
type TelegramService struct {
	bot    domain.TelegramSender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramService(bot domain.TelegramSender, chatID int64, logger *zerolog.Logger) *TelegramService {
	return &TelegramService{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}
}

func (s *TelegramService) SendMessage(text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(s.chatID, text)
	return s.bot.Send(msg)
}

func (s *TelegramService) SendMarkdown(text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return s.bot.Send(msg)
}

// HandleEvent renders alerts for reservation events and ignores the rest.
func (s *TelegramService) HandleEvent(event *events.Event) error {
	var text string
	switch event.Type {
	case events.EventReservationCreated, events.EventReservationStatusChanged:
		var p events.ReservationPayload
		if err := event.Decode(&p); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		text = reservationAlert(event.Type, &p)
	default:
		return nil
	}

	if _, err := s.SendMarkdown(text); err != nil {
		return fmt.Errorf("telegram alert: %w", err)
	}
	return nil
}

func reservationAlert(eventType string, p *events.ReservationPayload) string {
	var sb strings.Builder
	if eventType == events.EventReservationCreated {
		sb.WriteString("*New reservation*\n")
	} else {
		fmt.Fprintf(&sb, "*Reservation %s*\n", p.Status)
		if p.PreviousStatus != "" {
			fmt.Fprintf(&sb, "was: %s\n", p.PreviousStatus)
		}
	}
	fmt.Fprintf(&sb, "Ref: `%s`\n", p.ReferenceNumber)
	fmt.Fprintf(&sb, "Guest: %s\n", escapeMarkdown(strings.TrimSpace(p.FirstName+" "+p.LastName)))
	fmt.Fprintf(&sb, "When: %s %s, %s guests\n", escapeMarkdown(p.Date), escapeMarkdown(p.Time), escapeMarkdown(p.Guests))
	fmt.Fprintf(&sb, "Contact: %s, %s", escapeMarkdown(p.Email), escapeMarkdown(p.Phone))
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
