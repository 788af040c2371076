package summarizer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"standup-tracker/internal/domain"
	"standup-tracker/internal/infra/metrics"
)

// LLM строит итог недели через внешний completion API.
type LLM struct {
	client    domain.Completer
	timeout   time.Duration
	maxTokens int
	log       zerolog.Logger
}

var _ domain.WeeklySummarizer = (*LLM)(nil)

// NewLLM создаёт AI-суммаризатор. Истечение timeout считается сбоем AI.
func NewLLM(client domain.Completer, timeout time.Duration, maxTokens int, logger zerolog.Logger) *LLM {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	return &LLM{client: client, timeout: timeout, maxTokens: maxTokens, log: logger}
}

// SummarizeWeek делает ровно один запрос к модели и всегда возвращает пригодный итог.
func (s *LLM) SummarizeWeek(ctx context.Context, req domain.SummaryRequest) (summary domain.WeeklyReportSummary) {
	log := s.log.With().Str("week_start", req.Week.StartKey()).Str("week_end", req.Week.EndKey()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("summarizer: паника при построении итогов, возвращаем заглушку")
			metrics.ObserveSummaryOutcome("failed")
			summary = domain.FailedSummary()
		}
	}()

	members := memberNames(req.Days)
	prompt, err := userPrompt(req, members)
	if err != nil {
		log.Warn().Err(err).Msg("summarizer: не удалось собрать промпт")
		metrics.ObserveSummaryOutcome("failed")
		return domain.FailedSummary()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.client.Complete(callCtx, domain.CompletionRequest{
		System:    systemInstruction(members),
		Prompt:    prompt,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("summarizer: запрос к LLM завершился ошибкой")
		metrics.ObserveSummaryOutcome("failed")
		return domain.FailedSummary()
	}
	return s.interpret(text, members, req.Days, log)
}

func (s *LLM) interpret(text string, members []string, days []domain.StandupDay, log zerolog.Logger) domain.WeeklyReportSummary {
	result := parseResponse(text, members)
	if len(result.dropped) > 0 {
		log.Warn().Strs("keys", result.dropped).Msg("summarizer: отброшены итоги по несуществующим участникам")
	}

	summary := result.summary
	switch result.kind {
	case parseValid:
		metrics.ObserveSummaryOutcome("json")
		return summary
	case parseNeedsRepair:
		log.Warn().Msg("summarizer: модель не вернула итоги участников, строим их из апдейтов")
		summary.MemberSummaries = synthesizeMemberSummaries(days, members)
		metrics.ObserveSummaryOutcome("repaired")
		return summary.Normalize()
	}

	log.Warn().Msg("summarizer: ответ модели не JSON, используем эвристический разбор")
	summary = extractFromText(stripFence(text))
	valid, dropped := filterMembers(summary.MemberSummaries, members)
	if len(dropped) > 0 {
		log.Debug().Strs("keys", dropped).Msg("summarizer: эвристика нашла лишние заголовки участников")
	}
	if len(valid) == 0 && len(members) > 0 {
		valid = synthesizeMemberSummaries(days, members)
	}
	summary.MemberSummaries = valid
	metrics.ObserveSummaryOutcome("heuristic")
	return summary.Normalize()
}
