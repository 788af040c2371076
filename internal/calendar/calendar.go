// Package calendar централизует работу с датами в опорном часовом поясе:
// границы дней, недели отчётов и время срабатывания планировщика.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"standup-tracker/internal/domain"
)

// DefaultTimezone задаёт опорный часовой пояс по умолчанию.
const DefaultTimezone = "America/Vancouver"

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("invalid timezone")

// ErrInvalidDate возвращается для дат не в формате YYYY-MM-DD.
var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// Calendar вычисляет календарные даты в одном опорном часовом поясе.
type Calendar struct {
	loc *time.Location
}

// New создаёт календарь для IANA-зоны. Имя зоны нормализуется: "america/new york" → "America/New_York".
func New(timezone string) (*Calendar, error) {
	name, err := NormalizeTimezone(timezone)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
	}
	return &Calendar{loc: loc}, nil
}

// NewWithLocation создаёт календарь для уже загруженной зоны.
func NewWithLocation(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Location возвращает опорную зону.
func (c *Calendar) Location() *time.Location { return c.loc }

// DateOf возвращает полночь календарной даты момента t в опорной зоне.
func (c *Calendar) DateOf(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// DateKey возвращает календарную дату момента t в опорной зоне как YYYY-MM-DD.
func (c *Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format(domain.DateLayout)
}

// ParseDate разбирает YYYY-MM-DD как полночь в опорной зоне.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(s), c.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// WeekContaining возвращает неделю понедельник–воскресенье, содержащую t.
func (c *Calendar) WeekContaining(t time.Time) domain.WeekRange {
	day := c.DateOf(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := day.AddDate(0, 0, -(weekday - 1))
	return domain.WeekRange{Start: monday, End: monday.AddDate(0, 0, 6)}
}

// NewWeekRange проверяет и нормализует диапазон дат.
func (c *Calendar) NewWeekRange(start, end time.Time) (domain.WeekRange, error) {
	s, e := c.DateOf(start), c.DateOf(end)
	if e.Before(s) {
		return domain.WeekRange{}, domain.ErrInvalidWeekRange
	}
	return domain.WeekRange{Start: s, End: e}, nil
}

// ParseWeekRange разбирает пару дат. Пустой конец означает start+6 дней.
func (c *Calendar) ParseWeekRange(start, end string) (domain.WeekRange, error) {
	s, err := c.ParseDate(start)
	if err != nil {
		return domain.WeekRange{}, fmt.Errorf("week start: %w", err)
	}
	if strings.TrimSpace(end) == "" {
		return domain.WeekRange{Start: s, End: s.AddDate(0, 0, 6)}, nil
	}
	e, err := c.ParseDate(end)
	if err != nil {
		return domain.WeekRange{}, fmt.Errorf("week end: %w", err)
	}
	return c.NewWeekRange(s, e)
}

// NormalizeTimezone приводит пользовательский ввод к имени IANA-зоны.
func NormalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}
