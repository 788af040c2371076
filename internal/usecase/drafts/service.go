package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"standup-tracker/internal/domain"
)

// ErrEmptyNotes возвращается, если заметки для черновика пусты.
var ErrEmptyNotes = errors.New("notes are empty")

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxTokens = 300
)

// Draft содержит предложенные тексты трёх полей ежедневного апдейта.
type Draft struct {
	Yesterday string `json:"yesterday"`
	Today     string `json:"today"`
	Blockers  string `json:"blockers"`
}

type field struct {
	name   string
	prompt string
	target func(*Draft) *string
}

var fields = []field{
	{
		name:   "yesterday",
		prompt: "Write the \"what I did yesterday\" part of a daily standup update from these notes. Two or three short sentences, first person, plain text.",
		target: func(d *Draft) *string { return &d.Yesterday },
	},
	{
		name:   "today",
		prompt: "Write the \"what I plan to do today\" part of a daily standup update from these notes. Two or three short sentences, first person, plain text.",
		target: func(d *Draft) *string { return &d.Today },
	},
	{
		name:   "blockers",
		prompt: "List any blockers mentioned in these notes as one short plain-text sentence. If there are none, answer exactly \"None\".",
		target: func(d *Draft) *string { return &d.Blockers },
	},
}

const systemInstruction = "You help engineers write concise daily standup updates. Reply with the requested text only, without headings, quotes or markdown."

// Service генерирует черновики полей апдейта через LLM.
type Service struct {
	client    domain.Completer
	timeout   time.Duration
	maxTokens int
	log       zerolog.Logger
}

// NewService создаёт сервис черновиков.
func NewService(client domain.Completer, timeout time.Duration, logger zerolog.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		client:    client,
		timeout:   timeout,
		maxTokens: defaultMaxTokens,
		log:       logger.With().Str("component", "drafts").Logger(),
	}
}

// Draft параллельно запрашивает три поля. Поле с ошибкой остаётся пустым,
// а первая ошибка возвращается вместе с частичным результатом.
func (s *Service) Draft(ctx context.Context, notes string) (Draft, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return Draft{}, ErrEmptyNotes
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Контекст группы не отменяется по первой ошибке: остальные поля должны дописаться.
	results := make([]string, len(fields))
	var g errgroup.Group
	for i, f := range fields {
		g.Go(func() error {
			text, err := s.client.Complete(ctx, domain.CompletionRequest{
				System:    systemInstruction,
				Prompt:    f.prompt + "\n\nNotes:\n" + notes,
				MaxTokens: s.maxTokens,
			})
			if err != nil {
				s.log.Warn().Err(err).Str("field", f.name).Msg("drafts: не удалось сгенерировать поле")
				return fmt.Errorf("%s: %w", f.name, err)
			}
			results[i] = strings.TrimSpace(text)
			return nil
		})
	}
	err := g.Wait()

	var draft Draft
	for i, f := range fields {
		*f.target(&draft) = results[i]
	}
	return draft, err
}
