package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"standup-tracker/internal/adapters/telegram"
	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

// Sender отправляет сообщение в Telegram. *tgbotapi.BotAPI удовлетворяет интерфейсу.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Formatter превращает отчёт в HTML-текст.
type Formatter func(domain.WeeklyReport) string

// Telegram публикует готовые отчёты в чат команды.
type Telegram struct {
	bot    Sender
	chatID int64
	format Formatter
	log    zerolog.Logger
}

var _ domain.ReportNotifier = (*Telegram)(nil)

// NewTelegram создаёт нотификатор.
func NewTelegram(bot Sender, chatID int64, format Formatter, logger zerolog.Logger) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		format: format,
		log:    logger.With().Str("component", "notifier").Logger(),
	}
}

// NotifyReport отправляет отчёт частями. Отчёты в статусе failed не отправляются.
func (t *Telegram) NotifyReport(ctx context.Context, report domain.WeeklyReport) error {
	if report.Status != domain.ReportStatusGenerated {
		return nil
	}
	if t.chatID == 0 {
		return errors.New("notifier: chat id is not configured")
	}
	parts := telegram.SplitMessage(t.format(report), telegram.MessageLimit)
	target := strconv.FormatInt(t.chatID, 10)
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := t.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", target, start, err)
		if err != nil {
			metrics.NotifierSendErrors.Inc()
			return fmt.Errorf("notifier: отправка части %d/%d: %w", i+1, len(parts), err)
		}
	}
	t.log.Info().Str("report_id", report.ID).Int("parts", len(parts)).Msg("notifier: отчёт отправлен")
	return nil
}
