package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout задаёт формат календарной даты, используемый как ключ дня и недели.
const DateLayout = "2006-01-02"

// TeamMemberUpdate описывает ежедневный апдейт участника команды.
type TeamMemberUpdate struct {
	ID        string    `json:"id"`
	MemberID  string    `json:"memberId"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Yesterday string    `json:"yesterday"`
	Today     string    `json:"today"`
	Blockers  string    `json:"blockers"`
	Date      string    `json:"date,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// StandupDay объединяет апдейты за одну календарную дату.
type StandupDay struct {
	Date    string             `json:"date"`
	Members []TeamMemberUpdate `json:"members"`
}

// WeekRange описывает включительный диапазон календарных дат отчёта.
type WeekRange struct {
	Start time.Time
	End   time.Time
}

// StartKey возвращает дату начала в формате DateLayout.
func (w WeekRange) StartKey() string { return w.Start.Format(DateLayout) }

// EndKey возвращает дату окончания в формате DateLayout.
func (w WeekRange) EndKey() string { return w.End.Format(DateLayout) }

// Key используется как естественный ключ недели.
func (w WeekRange) Key() string { return w.StartKey() + "_" + w.EndKey() }

// Contains проверяет, попадает ли ключ даты в диапазон.
func (w WeekRange) Contains(dateKey string) bool {
	return dateKey >= w.StartKey() && dateKey <= w.EndKey()
}

func (w WeekRange) String() string {
	return fmt.Sprintf("%s..%s", w.StartKey(), w.EndKey())
}

type weekRangeJSON struct {
	Start string `json:"weekStart"`
	End   string `json:"weekEnd"`
}

// MarshalJSON сериализует неделю как пару дат.
func (w WeekRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(weekRangeJSON{Start: w.StartKey(), End: w.EndKey()})
}

// UnmarshalJSON читает неделю из пары дат в UTC.
func (w *WeekRange) UnmarshalJSON(data []byte) error {
	var raw weekRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(DateLayout, raw.Start)
	if err != nil {
		return fmt.Errorf("week start: %w", err)
	}
	end, err := time.Parse(DateLayout, raw.End)
	if err != nil {
		return fmt.Errorf("week end: %w", err)
	}
	if end.Before(start) {
		return ErrInvalidWeekRange
	}
	w.Start, w.End = start, end
	return nil
}

// MemberSummary содержит итог недели по одному участнику.
type MemberSummary struct {
	Role             string   `json:"role"`
	KeyContributions []string `json:"keyContributions"`
	Progress         string   `json:"progress"`
	Concerns         []string `json:"concerns"`
	NextWeekFocus    string   `json:"nextWeekFocus"`
}

// WeeklyReportSummary содержит командный итог недели.
type WeeklyReportSummary struct {
	KeyAccomplishments []string                 `json:"keyAccomplishments"`
	OngoingWork        []string                 `json:"ongoingWork"`
	Blockers           []string                 `json:"blockers"`
	TeamInsights       string                   `json:"teamInsights"`
	Recommendations    []string                 `json:"recommendations"`
	MemberSummaries    map[string]MemberSummary `json:"memberSummaries"`
}

// Normalize заменяет nil-списки и nil-карту пустыми значениями.
func (s WeeklyReportSummary) Normalize() WeeklyReportSummary {
	s.KeyAccomplishments = nonNil(s.KeyAccomplishments)
	s.OngoingWork = nonNil(s.OngoingWork)
	s.Blockers = nonNil(s.Blockers)
	s.Recommendations = nonNil(s.Recommendations)
	if s.MemberSummaries == nil {
		s.MemberSummaries = map[string]MemberSummary{}
	}
	for name, member := range s.MemberSummaries {
		member.KeyContributions = nonNil(member.KeyContributions)
		member.Concerns = nonNil(member.Concerns)
		s.MemberSummaries[name] = member
	}
	return s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// ReportStatus описывает состояние сохранённого отчёта.
type ReportStatus string

const (
	ReportStatusGenerated ReportStatus = "generated"
	ReportStatusFailed    ReportStatus = "failed"
	ReportStatusPending   ReportStatus = "pending"
)

// ReportSource описывает, каким путём был создан отчёт.
type ReportSource string

const (
	// ReportSourceScheduled — отчёт построен планировщиком.
	ReportSourceScheduled ReportSource = "scheduled"
	// ReportSourceManual — отчёт запрошен вручную.
	ReportSourceManual ReportSource = "manual"
)

// WeeklyReport описывает сохранённый недельный отчёт.
type WeeklyReport struct {
	ID            string              `json:"id"`
	Week          WeekRange           `json:"week"`
	TotalUpdates  int                 `json:"totalUpdates"`
	UniqueMembers int                 `json:"uniqueMembers"`
	Entries       []StandupDay        `json:"entries"`
	Summary       WeeklyReportSummary `json:"summary"`
	GeneratedAt   time.Time           `json:"generatedAt"`
	Status        ReportStatus        `json:"status"`
	Error         string              `json:"error,omitempty"`
	Source        ReportSource        `json:"source"`
}
