package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"standup-tracker/internal/adapters/summarizer"
	"standup-tracker/internal/calendar"
	"standup-tracker/internal/domain"
	"standup-tracker/internal/usecase/drafts"
	"standup-tracker/internal/usecase/report"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodyBytes     = 1 << 20
)

// ReportService описывает операции конвейера, доступные через API.
type ReportService interface {
	Generate(ctx context.Context, week domain.WeekRange, opts report.GenerateOptions) (report.Outcome, error)
	Regenerate(ctx context.Context, reportID string, instructions string) (domain.WeeklyReport, error)
	List(ctx context.Context, limit int) ([]domain.WeeklyReport, error)
	Get(ctx context.Context, id string) (domain.WeeklyReport, error)
}

// Drafter генерирует черновик апдейта.
type Drafter interface {
	Draft(ctx context.Context, notes string) (drafts.Draft, error)
}

// Handler обслуживает HTTP API отчётов.
type Handler struct {
	reports ReportService
	drafter Drafter
	queue   domain.ReportQueue
	cal     *calendar.Calendar
	now     func() time.Time
	log     zerolog.Logger
}

// NewHandler создаёт обработчик. drafter и queue могут быть nil.
func NewHandler(reports ReportService, drafter Drafter, queue domain.ReportQueue, cal *calendar.Calendar, logger zerolog.Logger) *Handler {
	return &Handler{
		reports: reports,
		drafter: drafter,
		queue:   queue,
		cal:     cal,
		now:     time.Now,
		log:     logger.With().Str("component", "api").Logger(),
	}
}

// Mount регистрирует маршруты.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports/generate", h.generate)
		r.Get("/reports", h.list)
		r.Get("/reports/{id}", h.get)
		r.Post("/reports/{id}/regenerate", h.regenerate)
		r.Get("/reports/{id}/export.csv", h.exportCSV)
		r.Post("/updates/draft", h.draft)
	})
}

type generateRequest struct {
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	Force        bool   `json:"force"`
	UseAI        *bool  `json:"use_ai"`
	Instructions string `json:"instructions"`
	Async        bool   `json:"async"`
}

type generateResponse struct {
	Report     *domain.WeeklyReport `json:"report,omitempty"`
	Skipped    bool                 `json:"skipped"`
	SkipReason string               `json:"skip_reason,omitempty"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	week, err := h.week(req.WeekStart, req.WeekEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := report.GenerateOptions{
		Source:       domain.ReportSourceManual,
		Force:        req.Force,
		UseAI:        req.UseAI == nil || *req.UseAI,
		Instructions: strings.TrimSpace(req.Instructions),
	}

	if req.Async {
		h.enqueue(w, r, report.NewGenerateJob(week, opts))
		return
	}

	outcome, err := h.reports.Generate(r.Context(), week, opts)
	if err != nil {
		h.writeServiceError(w, err, "generate report")
		return
	}
	resp := generateResponse{Skipped: outcome.Skipped, SkipReason: outcome.SkipReason}
	if outcome.Report.ID != "" {
		resp.Report = &outcome.Report
	}
	status := http.StatusCreated
	if outcome.Skipped {
		status = http.StatusOK
	}
	writeJSONStatus(w, status, resp)
}

func (h *Handler) week(start, end string) (domain.WeekRange, error) {
	if strings.TrimSpace(start) == "" {
		if strings.TrimSpace(end) != "" {
			return domain.WeekRange{}, errors.New("week_start is required when week_end is set")
		}
		return h.cal.WeekContaining(h.now()), nil
	}
	week, err := h.cal.ParseWeekRange(start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidWeekRange) {
			return domain.WeekRange{}, err
		}
		return domain.WeekRange{}, fmt.Errorf("invalid week: %w", err)
	}
	return week, nil
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, job domain.ReportJob) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "job queue is not configured")
		return
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID).Msg("api: не удалось поставить задачу в очередь")
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}
	h.log.Info().Str("job_id", job.ID).Str("cause", string(job.Cause)).Msg("api: задача поставлена в очередь")
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	reports, err := h.reports.List(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "list reports")
		return
	}
	if reports == nil {
		reports = []domain.WeeklyReport{}
	}
	writeJSON(w, map[string]any{"reports": reports})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "get report")
		return
	}
	writeJSON(w, rep)
}

type regenerateRequest struct {
	Instructions string `json:"instructions"`
	Async        bool   `json:"async"`
}

func (h *Handler) regenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	instructions := strings.TrimSpace(req.Instructions)
	if req.Async {
		h.enqueue(w, r, report.NewRegenerateJob(id, instructions))
		return
	}
	rep, err := h.reports.Regenerate(r.Context(), id, instructions)
	if err != nil {
		h.writeServiceError(w, err, "regenerate report")
		return
	}
	writeJSON(w, rep)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "export report")
		return
	}
	filename := fmt.Sprintf("standup-report-%s.csv", rep.Week.Key())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.WriteCSV(w, rep, summarizer.StripHTML); err != nil {
		h.log.Error().Err(err).Str("report_id", rep.ID).Msg("api: ошибка выгрузки CSV")
	}
}

type draftRequest struct {
	Notes string `json:"notes"`
}

type draftResponse struct {
	drafts.Draft
	Error string `json:"error,omitempty"`
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request) {
	if h.drafter == nil {
		writeError(w, http.StatusServiceUnavailable, "ai drafting is not configured")
		return
	}
	var req draftRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.drafter.Draft(r.Context(), req.Notes)
	switch {
	case errors.Is(err, drafts.ErrEmptyNotes):
		writeError(w, http.StatusBadRequest, "notes are required")
		return
	case err != nil && d == (drafts.Draft{}):
		h.log.Error().Err(err).Msg("api: черновик не получен")
		writeError(w, http.StatusBadGateway, "failed to draft update")
		return
	case err != nil:
		h.log.Warn().Err(err).Msg("api: черновик получен частично")
		writeJSON(w, draftResponse{Draft: d, Error: "some fields could not be drafted"})
		return
	}
	writeJSON(w, draftResponse{Draft: d})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, domain.ErrInvalidWeekRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Msgf("api: %s", op)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]any{"error": msg})
}
