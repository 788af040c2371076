package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"standup-tracker/internal/domain"
)

type fakeSender struct {
	messages []tgbotapi.MessageConfig
	failAt   int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.messages = append(f.messages, msg)
	if f.failAt > 0 && len(f.messages) == f.failAt {
		return tgbotapi.Message{}, errors.New("too many requests")
	}
	return tgbotapi.Message{MessageID: len(f.messages)}, nil
}

func TestNotifyReportSendsHTMLParts(t *testing.T) {
	sender := &fakeSender{}
	long := strings.Repeat("line of text\n", 600)
	n := NewTelegram(sender, -100, func(domain.WeeklyReport) string { return long }, zerolog.Nop())

	err := n.NotifyReport(context.Background(), domain.WeeklyReport{ID: "r1", Status: domain.ReportStatusGenerated})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(sender.messages) != 2 {
		t.Fatalf("ожидали 2 сообщения, получили %d", len(sender.messages))
	}
	for _, msg := range sender.messages {
		if msg.ChatID != -100 || msg.ParseMode != tgbotapi.ModeHTML || !msg.DisableWebPagePreview {
			t.Fatalf("неожиданные параметры сообщения: %+v", msg)
		}
		if len([]rune(msg.Text)) > 4096 {
			t.Fatalf("сообщение длиннее лимита")
		}
	}
}

func TestNotifyReportSkipsFailedReports(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 1, func(domain.WeeklyReport) string { return "x" }, zerolog.Nop())
	if err := n.NotifyReport(context.Background(), domain.WeeklyReport{Status: domain.ReportStatusFailed}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(sender.messages) != 0 {
		t.Fatalf("failed-отчёт не должен отправляться")
	}
}

func TestNotifyReportReturnsSendError(t *testing.T) {
	sender := &fakeSender{failAt: 1}
	n := NewTelegram(sender, 1, func(domain.WeeklyReport) string { return "text" }, zerolog.Nop())
	err := n.NotifyReport(context.Background(), domain.WeeklyReport{Status: domain.ReportStatusGenerated})
	if err == nil || !strings.Contains(err.Error(), "1/1") {
		t.Fatalf("ожидали ошибку отправки с номером части, получили %v", err)
	}
}

func TestNotifyReportRequiresChat(t *testing.T) {
	n := NewTelegram(&fakeSender{}, 0, func(domain.WeeklyReport) string { return "x" }, zerolog.Nop())
	if err := n.NotifyReport(context.Background(), domain.WeeklyReport{Status: domain.ReportStatusGenerated}); err == nil {
		t.Fatalf("ожидали ошибку без chat id")
	}
}
